package panel

import (
	"strings"

	"github.com/mssola/useragent"
)

// Detector tells which platform the viewer is on
type Detector interface {
	IsAndroid() bool
}

// UserAgent detects platform by User-Agent header value
type UserAgent string

// IsAndroid reports whether the agent runs on Android
func (ua UserAgent) IsAndroid() bool {
	if ua == "" {
		return false
	}
	parsed := useragent.New(string(ua))
	return strings.HasPrefix(strings.ToLower(parsed.OS()), "android")
}

// StaticPlatform is a fixed answer, e.g. from a command line flag
type StaticPlatform bool

func (p StaticPlatform) IsAndroid() bool {
	return bool(p)
}
