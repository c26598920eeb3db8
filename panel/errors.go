package panel

import (
	"fmt"
)

var (
	// When resolution text is not in '{width}x{height}' form
	ErrMalformedResolution = fmt.Errorf("resolution must look like '{width}x{height}'")
	// When an action needs a record which has not been fetched (yet or at all)
	ErrNotResolved = fmt.Errorf("record has not been fetched")
)

// HTTPError is returned when the server answers with a non-2xx status
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
