package panel

import (
	"fmt"
	"strconv"
	"strings"
)

// Stream is a named video source. Name is the resource key
type Stream struct {
	Name   string
	Active bool
	// Filled by server when it knows what is on air
	PlayingTitle    string `json:",omitempty"`
	PlayingSubtitle string `json:",omitempty"`
}

// Settings is the part of server settings the panel shows and edits
type Settings struct {
	VideoWidth   int
	VideoHeight  int
	ExternalHost string
	StreamPort   int
}

const (
	// ModalTrigger is the watch link on platforms without intent support: it opens the watch dialog instead of navigating
	ModalTrigger      = "javascript:$('#watchModal').modal('show')"
	intentURLTemplate = "intent://%s:%d/#Intent;scheme=http;type=video/mp2t;end"
)

// WatchURL returns link handing the stream to a native player on Android and ModalTrigger elsewhere
func WatchURL(settings Settings, platform Detector) string {
	if platform != nil && platform.IsAndroid() {
		return fmt.Sprintf(intentURLTemplate, settings.ExternalHost, settings.StreamPort)
	}
	return ModalTrigger
}

// FormatResolution returns '{width}x{height}'
func FormatResolution(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// ParseResolution splits '{width}x{height}' into base 10 integers
func ParseResolution(res string) (int, int, error) {
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return 0, 0, ErrMalformedResolution
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, ErrMalformedResolution
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, ErrMalformedResolution
	}
	return width, height, nil
}
