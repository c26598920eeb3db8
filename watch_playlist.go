package kickoff

import (
	"fmt"

	"github.com/grafov/m3u8"
	"github.com/pkg/errors"
)

// watchPlaylist builds a single entry playlist pointing at the transcoder output, for players without intent support
func (app *Application) watchPlaylist() ([]byte, error) {
	settings := app.Settings.get()
	playlist, err := m3u8.NewMediaPlaylist(1, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create new media playlist")
	}
	title := "kickoff"
	if active, ok := app.Streams.active(); ok {
		title = active.Name
	}
	uri := fmt.Sprintf("http://%s:%d/", settings.ExternalHost, settings.StreamPort)
	if err := playlist.Append(uri, 0, title); err != nil {
		return nil, errors.Wrap(err, "Can't append stream to playlist")
	}
	playlist.Close()
	return playlist.Encode().Bytes(), nil
}
