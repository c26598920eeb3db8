package configuration

import (
	"fmt"
)

// Configuration represents user defined settings for kickoff server
type Configuration struct {
	APICfg        APIConfiguration            `json:"api" toml:"api"`
	AuthCfg       AuthConfiguration           `json:"auth" toml:"auth"`
	CorsConfig    CORSConfiguration           `json:"cors" toml:"cors"`
	VideoCfg      VideoConfiguration          `json:"video" toml:"video"`
	TranscoderCfg TranscoderConfiguration     `json:"transcoder" toml:"transcoder"`
	StorageCfg    StorageConfiguration        `json:"storage" toml:"storage"`
	Streams       []SingleStreamConfiguration `json:"streams" toml:"streams"`
	// MySQL DSN of MythTV backend, e.g. 'mythtv:mythtv@tcp(localhost:3306)/mythconverg'. Empty disables playing titles
	MythDSN string `json:"myth_dsn" toml:"myth_dsn"`
}

// APIConfiguration is needed for configuring REST API part
type APIConfiguration struct {
	Host string `json:"host" toml:"host"`
	Port int32  `json:"port" toml:"port"`
	// 'release' or 'debug' for GIN
	Mode    string `json:"mode" toml:"mode"`
	Verbose string `json:"verbose" toml:"verbose"`
	Pprof   bool   `json:"pprof" toml:"pprof"`
	// Directory with panel's HTML/JS. Leave it empty to serve API only
	StaticFilesPath string `json:"static_files_path" toml:"static_files_path"`
}

// AuthConfiguration enables HTTP basic auth when every field is set
type AuthConfiguration struct {
	Realm string `json:"realm" toml:"realm"`
	User  string `json:"user" toml:"user"`
	Pass  string `json:"pass" toml:"pass"`
}

// Enabled reports whether basic auth should guard every route
func (auth *AuthConfiguration) Enabled() bool {
	return auth.Realm != "" && auth.User != "" && auth.Pass != ""
}

// VideoConfiguration is what transcoder produces and where viewers find it
type VideoConfiguration struct {
	ExternalHost string `json:"external_host" toml:"external_host"`
	ListenHost   string `json:"listen_host" toml:"listen_host"`
	StreamPort   int32  `json:"stream_port" toml:"stream_port"`
	Width        int    `json:"width" toml:"width"`
	Height       int    `json:"height" toml:"height"`
	// 'h264' or 'ogg'
	Codec          string `json:"codec" toml:"codec"`
	VideoBitrate   int    `json:"video_bitrate" toml:"video_bitrate"`
	VideoQuality   int    `json:"video_quality" toml:"video_quality"`
	AudioBitrate   int    `json:"audio_bitrate" toml:"audio_bitrate"`
	CaptureCacheMs int    `json:"capture_cache_ms" toml:"capture_cache_ms"`
}

// TranscoderConfiguration is for the VLC process
type TranscoderConfiguration struct {
	Binary    string   `json:"binary" toml:"binary"`
	ExtraArgs []string `json:"extra_args" toml:"extra_args"`
}

// StorageConfiguration is where edited settings survive restarts
type StorageConfiguration struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	// 'filesystem' or 'minio'
	Type  string        `json:"type" toml:"type"`
	Path  string        `json:"path" toml:"path"`
	Minio MinioSettings `json:"minio_settings" toml:"minio_settings"`
}

// MinioSettings
type MinioSettings struct {
	Host     string `json:"host" toml:"host"`
	Port     int32  `json:"port" toml:"port"`
	User     string `json:"user" toml:"user"`
	Password string `json:"password" toml:"password"`
	UseSSL   bool   `json:"use_ssl" toml:"use_ssl"`
	Bucket   string `json:"bucket" toml:"bucket"`
	Object   string `json:"object" toml:"object"`
}

func (ms *MinioSettings) String() string {
	return fmt.Sprintf("Host '%s' Port '%d' User '%s' Bucket '%s' Object '%s'", ms.Host, ms.Port, ms.User, ms.Bucket, ms.Object)
}

// CORSConfiguration is settings for CORS
type CORSConfiguration struct {
	Enabled          bool     `json:"enabled" toml:"enabled"`
	AllowOrigins     []string `json:"allow_origins" toml:"allow_origins"`
	AllowMethods     []string `json:"allow_methods" toml:"allow_methods"`
	AllowHeaders     []string `json:"allow_headers" toml:"allow_headers"`
	ExposeHeaders    []string `json:"expose_headers" toml:"expose_headers"`
	AllowCredentials bool     `json:"allow_credentials" toml:"allow_credentials"`
}

// SingleStreamConfiguration is a source the panel can switch to
type SingleStreamConfiguration struct {
	Name string `json:"name" toml:"name"`
	URL  string `json:"url" toml:"url"`
	// Channel in MythTV programme guide. Zero disables titles for the stream
	MythChanID int `json:"myth_chan_id" toml:"myth_chan_id"`
}
