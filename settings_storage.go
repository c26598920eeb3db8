package kickoff

import (
	"sync"

	"github.com/LdDl/kickoff/configuration"
)

// Settings is what transcoder produces and where viewers find it
type Settings struct {
	ExternalHost   string
	ListenHost     string `json:"-"`
	StreamPort     int
	VideoWidth     int
	VideoHeight    int
	VideoCodec     string
	VideoBitrate   int
	VideoQuality   int
	AudioBitrate   int
	CaptureCacheMs int
}

// EditableSettings are the fields clients may change (and the ones persisted in snapshot)
type EditableSettings struct {
	VideoWidth     int `json:"VideoWidth,omitempty"`
	VideoHeight    int `json:"VideoHeight,omitempty"`
	VideoBitrate   int `json:"VideoBitrate,omitempty"`
	AudioBitrate   int `json:"AudioBitrate,omitempty"`
	CaptureCacheMs int `json:"CaptureCacheMs,omitempty"`
}

// SettingsStorage wraps Settings with mutex for concurrent usage
type SettingsStorage struct {
	sync.RWMutex
	settings Settings
}

// NewSettingsStorage prepares settings from video configuration
func NewSettingsStorage(cfg configuration.VideoConfiguration) *SettingsStorage {
	return &SettingsStorage{
		settings: Settings{
			ExternalHost:   cfg.ExternalHost,
			ListenHost:     cfg.ListenHost,
			StreamPort:     int(cfg.StreamPort),
			VideoWidth:     cfg.Width,
			VideoHeight:    cfg.Height,
			VideoCodec:     cfg.Codec,
			VideoBitrate:   cfg.VideoBitrate,
			VideoQuality:   cfg.VideoQuality,
			AudioBitrate:   cfg.AudioBitrate,
			CaptureCacheMs: cfg.CaptureCacheMs,
		},
	}
}

func (storage *SettingsStorage) get() Settings {
	storage.RLock()
	defer storage.RUnlock()
	return storage.settings
}

// editable returns the fields clients may change
func (storage *SettingsStorage) editable() EditableSettings {
	storage.RLock()
	defer storage.RUnlock()
	return EditableSettings{
		VideoWidth:     storage.settings.VideoWidth,
		VideoHeight:    storage.settings.VideoHeight,
		VideoBitrate:   storage.settings.VideoBitrate,
		AudioBitrate:   storage.settings.AudioBitrate,
		CaptureCacheMs: storage.settings.CaptureCacheMs,
	}
}

// update takes positive editable fields only: a client which knows nothing about bitrates posts zeros for them
func (storage *SettingsStorage) update(posted EditableSettings) Settings {
	storage.Lock()
	defer storage.Unlock()
	if posted.VideoWidth > 0 {
		storage.settings.VideoWidth = posted.VideoWidth
	}
	if posted.VideoHeight > 0 {
		storage.settings.VideoHeight = posted.VideoHeight
	}
	if posted.VideoBitrate > 0 {
		storage.settings.VideoBitrate = posted.VideoBitrate
	}
	if posted.AudioBitrate > 0 {
		storage.settings.AudioBitrate = posted.AudioBitrate
	}
	if posted.CaptureCacheMs > 0 {
		storage.settings.CaptureCacheMs = posted.CaptureCacheMs
	}
	return storage.settings
}
