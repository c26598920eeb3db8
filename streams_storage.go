package kickoff

import (
	"sync"

	"github.com/LdDl/kickoff/configuration"
)

// Stream is a source the panel can switch to. Name is the key
type Stream struct {
	Name   string `json:"Name"`
	URL    string `json:"Url,omitempty"`
	Active bool   `json:"Active"`
	// MythTV channel. Zero means the stream has no programme guide
	MythChanID      int    `json:"MythChanId,omitempty"`
	PlayingTitle    string `json:"PlayingTitle,omitempty"`
	PlayingSubtitle string `json:"PlayingSubtitle,omitempty"`
}

// StreamsStorage keeps streams in configuration order with mutex for concurrent usage
type StreamsStorage struct {
	sync.RWMutex
	streams []*Stream
}

// NewStreamsStorage prepares storage from configured streams. Streams with duplicated names are skipped
func NewStreamsStorage(cfgs []configuration.SingleStreamConfiguration) *StreamsStorage {
	storage := &StreamsStorage{
		streams: make([]*Stream, 0, len(cfgs)),
	}
	seen := make(map[string]struct{}, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Name == "" {
			continue
		}
		if _, ok := seen[cfg.Name]; ok {
			continue
		}
		seen[cfg.Name] = struct{}{}
		storage.streams = append(storage.streams, &Stream{
			Name:       cfg.Name,
			URL:        cfg.URL,
			MythChanID: cfg.MythChanID,
		})
	}
	return storage
}

// list returns copies of all streams
func (storage *StreamsStorage) list() []Stream {
	storage.RLock()
	defer storage.RUnlock()
	streams := make([]Stream, 0, len(storage.streams))
	for _, stream := range storage.streams {
		streams = append(streams, *stream)
	}
	return streams
}

// active returns currently active stream
func (storage *StreamsStorage) active() (Stream, bool) {
	storage.RLock()
	defer storage.RUnlock()
	for _, stream := range storage.streams {
		if stream.Active {
			return *stream, true
		}
	}
	return Stream{}, false
}

// apply takes Active flag of the posted stream. Activating a stream deactivates every other one.
// Returns applied stream and the stream which is active afterwards (if any)
func (storage *StreamsStorage) apply(posted Stream) (applied Stream, active Stream, hasActive bool, err error) {
	if posted.Name == "" {
		return Stream{}, Stream{}, false, ErrEmptyStreamName
	}
	storage.Lock()
	defer storage.Unlock()
	found := false
	for _, stream := range storage.streams {
		if stream.Name == posted.Name {
			found = true
			break
		}
	}
	if !found {
		return Stream{}, Stream{}, false, ErrStreamNotFound
	}
	for _, stream := range storage.streams {
		if stream.Name == posted.Name {
			stream.Active = posted.Active
			applied = *stream
		} else if posted.Active {
			stream.Active = false
		}
		if stream.Active {
			active = *stream
			hasActive = true
		}
	}
	return applied, active, hasActive, nil
}
