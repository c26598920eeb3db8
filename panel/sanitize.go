package panel

import (
	"regexp"
	"strings"
)

const unsafePrefix = "unsafe:"

var (
	// DefaultSchemes are the link schemes any watch link may use
	DefaultSchemes = []string{"http", "https", "ftp", "mailto", "intent"}
	// EvolvedSchemes additionally allow 'javascript' which the modal trigger needs
	EvolvedSchemes = append(append([]string{}, DefaultSchemes...), "javascript")
)

var schemeRegExp = regexp.MustCompile(`^\s*[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// LinkSanitizer restricts outbound hyperlinks to an allow-list of schemes
type LinkSanitizer struct {
	schemes []string
	allowed *regexp.Regexp
}

// NewLinkSanitizer builds sanitizer for the given schemes (case insensitive)
func NewLinkSanitizer(schemes ...string) *LinkSanitizer {
	ls := &LinkSanitizer{
		schemes: make([]string, 0, len(schemes)),
	}
	quoted := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		if scheme == "" {
			continue
		}
		ls.schemes = append(ls.schemes, scheme)
		quoted = append(quoted, regexp.QuoteMeta(scheme))
	}
	if len(quoted) > 0 {
		ls.allowed = regexp.MustCompile(`(?i)^\s*(` + strings.Join(quoted, "|") + `):`)
	}
	return ls
}

// Schemes returns allow-listed schemes
func (ls *LinkSanitizer) Schemes() []string {
	schemes := make([]string, len(ls.schemes))
	copy(schemes, ls.schemes)
	return schemes
}

// Allowed reports whether href may be used as a link target. Relative links carry no scheme and are allowed
func (ls *LinkSanitizer) Allowed(href string) bool {
	if ls.allowed != nil && ls.allowed.MatchString(href) {
		return true
	}
	return !schemeRegExp.MatchString(href)
}

// Sanitize returns href untouched when allowed and prefixed with 'unsafe:' otherwise
func (ls *LinkSanitizer) Sanitize(href string) string {
	if ls.Allowed(href) {
		return href
	}
	return unsafePrefix + href
}
