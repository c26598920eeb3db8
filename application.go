package kickoff

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/LdDl/kickoff/configuration"
	"github.com/LdDl/kickoff/storage"
	"github.com/gin-contrib/cors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const snapshotTimeout = 10 * time.Second

// Application is a configuration parameters for application
type Application struct {
	APICfg        configuration.APIConfiguration
	AuthCfg       configuration.AuthConfiguration
	TranscoderCfg configuration.TranscoderConfiguration
	CorsConfig    *cors.Config
	Streams       *StreamsStorage
	Settings      *SettingsStorage

	transcoder *Transcoder
	hub        *Hub
	snapshots  storage.SnapshotStorage
	titles     TitlesSource
}

// ApplicationOption configures Application
type ApplicationOption func(*Application)

// WithLauncher replaces the launcher of transcoder processes
func WithLauncher(launcher Launcher) ApplicationOption {
	return func(app *Application) {
		app.transcoder.launcher = launcher
	}
}

// WithSnapshotStorage replaces the storage built from configuration
func WithSnapshotStorage(snapshots storage.SnapshotStorage) ApplicationOption {
	return func(app *Application) {
		app.snapshots = snapshots
	}
}

// WithTitlesSource replaces the source of playing titles built from configuration
func WithTitlesSource(titles TitlesSource) ApplicationOption {
	return func(app *Application) {
		app.titles = titles
	}
}

// State is what websocket clients receive
type State struct {
	Streams  []Stream `json:"streams"`
	Settings Settings `json:"settings"`
}

// NewApplication prepares application from configuration
func NewApplication(cfg *configuration.Configuration, opts ...ApplicationOption) (*Application, error) {
	if _, ok := videoCodecExists(cfg.VideoCfg.Codec); !ok {
		return nil, errors.Wrapf(ErrUnknownVideoCodec, "Codec is '%s'", cfg.VideoCfg.Codec)
	}
	app := &Application{
		APICfg:        cfg.APICfg,
		AuthCfg:       cfg.AuthCfg,
		TranscoderCfg: cfg.TranscoderCfg,
		Streams:       NewStreamsStorage(cfg.Streams),
		Settings:      NewSettingsStorage(cfg.VideoCfg),
		hub:           NewHub(),
	}
	if cfg.CorsConfig.Enabled {
		app.setCors(cfg.CorsConfig)
	}
	app.transcoder = NewTranscoder(cfg.TranscoderCfg.Binary, cfg.TranscoderCfg.ExtraArgs, app.Settings.get, nil)

	if cfg.StorageCfg.Enabled {
		snapshots, err := prepareSnapshotStorage(cfg.StorageCfg)
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare snapshot storage")
		}
		app.snapshots = snapshots
	}
	if cfg.MythDSN != "" {
		titles, err := NewMythTVTitles(cfg.MythDSN)
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare playing titles")
		}
		log.Info().Str("scope", SCOPE_TITLES).Str("event", EVENT_TITLES_OPEN).Msg("MythTV database is opened")
		app.titles = titles
	}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

func (app *Application) setCors(cfg configuration.CORSConfiguration) {
	newCors := cors.DefaultConfig()
	app.CorsConfig = &newCors
	app.CorsConfig.AllowOrigins = cfg.AllowOrigins
	if len(cfg.AllowMethods) != 0 {
		app.CorsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) != 0 {
		app.CorsConfig.AllowHeaders = cfg.AllowHeaders
	}
	app.CorsConfig.ExposeHeaders = cfg.ExposeHeaders
	app.CorsConfig.AllowCredentials = cfg.AllowCredentials
	if len(app.CorsConfig.AllowOrigins) == 0 {
		app.CorsConfig.AllowAllOrigins = true
	}
}

func prepareSnapshotStorage(cfg configuration.StorageConfiguration) (storage.SnapshotStorage, error) {
	switch storage.NewStorageTypeFrom(cfg.Type) {
	case storage.STORAGE_FILESYSTEM:
		return storage.NewFileSystemProvider(cfg.Path)
	case storage.STORAGE_MINIO:
		minioCfg := cfg.Minio
		client, err := storage.NewMinioClient(minioCfg.Host, minioCfg.Port, minioCfg.User, minioCfg.Password, minioCfg.UseSSL)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioProvider(client, minioCfg.Bucket, minioCfg.Object)
	default:
		return nil, errors.Errorf("Not supported storage type '%s'", cfg.Type)
	}
}

// RunTranscoder runs transcoder loop until ctx is done
func (app *Application) RunTranscoder(ctx context.Context) {
	if active, ok := app.Streams.active(); ok {
		app.transcoder.Apply(active.URL)
	}
	app.transcoder.Run(ctx)
}

// Storages which need preparation before the first save
type preparer interface {
	MakeBucket(ctx context.Context) error
}

// RestoreSettings prepares snapshot storage and applies persisted snapshot (if there is one)
func (app *Application) RestoreSettings(ctx context.Context) error {
	if app.snapshots == nil {
		return nil
	}
	if p, ok := app.snapshots.(preparer); ok {
		if err := p.MakeBucket(ctx); err != nil {
			return errors.Wrap(err, "Can't prepare snapshot storage")
		}
	}
	payload, err := app.snapshots.Load(ctx)
	if err == storage.ErrNoSnapshot {
		log.Info().Str("scope", SCOPE_SNAPSHOT).Str("event", EVENT_SNAPSHOT_LOAD).Str("storage", app.snapshots.Type().String()).Msg("No settings snapshot yet")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "Can't load settings snapshot")
	}
	editable := EditableSettings{}
	if err := json.Unmarshal(payload, &editable); err != nil {
		return errors.Wrap(err, "Can't decode settings snapshot")
	}
	settings := app.Settings.update(editable)
	log.Info().Str("scope", SCOPE_SNAPSHOT).Str("event", EVENT_SNAPSHOT_LOAD).Str("storage", app.snapshots.Type().String()).Int("video_width", settings.VideoWidth).Int("video_height", settings.VideoHeight).Msg("Settings snapshot has been restored")
	return nil
}

func (app *Application) persistSettings(ctx context.Context) error {
	if app.snapshots == nil {
		return nil
	}
	payload, err := json.Marshal(app.Settings.editable())
	if err != nil {
		return errors.Wrap(err, "Can't encode settings snapshot")
	}
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	if err := app.snapshots.Save(ctx, payload); err != nil {
		return errors.Wrap(err, "Can't save settings snapshot")
	}
	return nil
}

// applyStream applies posted stream state and points transcoder to the active stream
func (app *Application) applyStream(posted Stream) (Stream, error) {
	applied, active, hasActive, err := app.Streams.apply(posted)
	if err != nil {
		return Stream{}, err
	}
	log.Info().Str("scope", SCOPE_STREAMS).Str("event", EVENT_STREAM_APPLY).Str("stream_name", applied.Name).Bool("active", applied.Active).Bool("has_active", hasActive).Msg("Stream has been applied")
	if hasActive {
		app.transcoder.Apply(active.URL)
	} else {
		app.transcoder.Apply("")
	}
	app.broadcastState()
	return applied, nil
}

// updateSettings applies posted settings and restarts transcoder with them
func (app *Application) updateSettings(ctx context.Context, posted EditableSettings) Settings {
	settings := app.Settings.update(posted)
	log.Info().Str("scope", SCOPE_SETTINGS).Str("event", EVENT_SETTINGS_UPDATE).Int("video_width", settings.VideoWidth).Int("video_height", settings.VideoHeight).Msg("Settings have been updated")
	app.transcoder.Restart()
	if err := app.persistSettings(ctx); err != nil {
		log.Error().Err(err).Str("scope", SCOPE_SNAPSHOT).Str("event", EVENT_SNAPSHOT_SAVE).Msg("Can't persist settings")
	}
	app.broadcastState()
	return settings
}

// Close releases connections held by application
func (app *Application) Close() error {
	if closer, ok := app.titles.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// listStreams returns streams with titles which are on air right now
func (app *Application) listStreams(ctx context.Context) []Stream {
	streams := app.Streams.list()
	fillPlayingTitles(ctx, app.titles, streams)
	return streams
}

func (app *Application) statePayload() ([]byte, error) {
	return json.Marshal(State{
		Streams:  app.Streams.list(),
		Settings: app.Settings.get(),
	})
}

func (app *Application) broadcastState() {
	payload, err := app.statePayload()
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("event", EVENT_WS_BROADCAST).Msg("Can't encode state")
		return
	}
	app.hub.broadcast(payload)
}
