package configuration

import (
	"strings"
)

const (
	defaultAPIHost        = "0.0.0.0"
	defaultAPIPort        = 8080
	defaultListenHost     = "0.0.0.0"
	defaultStreamPort     = 8081
	defaultWidth          = 640
	defaultHeight         = 480
	defaultCodec          = "h264"
	defaultVideoBitrate   = 800
	defaultVideoQuality   = 6
	defaultAudioBitrate   = 128
	defaultCaptureCacheMs = 1000
	defaultTranscoder     = "vlc"
	defaultStorageType    = "filesystem"
	defaultSnapshotPath   = "./kickoff_settings.json"
	defaultSnapshotObject = "kickoff_settings.json"
)

func postProcessDefaults(cfg *Configuration) {
	if cfg.APICfg.Host == "" {
		cfg.APICfg.Host = defaultAPIHost
	}
	if cfg.APICfg.Port == 0 {
		cfg.APICfg.Port = defaultAPIPort
	}

	video := &cfg.VideoCfg
	if video.ListenHost == "" {
		video.ListenHost = defaultListenHost
	}
	if video.StreamPort == 0 {
		video.StreamPort = defaultStreamPort
	}
	if video.Width <= 0 {
		video.Width = defaultWidth
	}
	if video.Height <= 0 {
		video.Height = defaultHeight
	}
	video.Codec = strings.ToLower(video.Codec)
	if video.Codec == "" {
		video.Codec = defaultCodec
	}
	if video.VideoBitrate <= 0 {
		video.VideoBitrate = defaultVideoBitrate
	}
	if video.VideoQuality <= 0 {
		video.VideoQuality = defaultVideoQuality
	}
	if video.AudioBitrate <= 0 {
		video.AudioBitrate = defaultAudioBitrate
	}
	if video.CaptureCacheMs <= 0 {
		video.CaptureCacheMs = defaultCaptureCacheMs
	}

	if cfg.TranscoderCfg.Binary == "" {
		cfg.TranscoderCfg.Binary = defaultTranscoder
	}

	if cfg.StorageCfg.Type == "" {
		cfg.StorageCfg.Type = defaultStorageType
	}
	if cfg.StorageCfg.Path == "" {
		cfg.StorageCfg.Path = defaultSnapshotPath
	}
	if cfg.StorageCfg.Minio.Object == "" {
		cfg.StorageCfg.Minio.Object = defaultSnapshotObject
	}
}
