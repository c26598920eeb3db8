package kickoff

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Router builds API routes
func (app *Application) Router() *gin.Engine {
	log.Info().Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_PREPARE).Msg("Preparing router")
	router := gin.New()
	// Stream names may carry escaped slashes: route on the raw path and unescape ':name'
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(gin.Recovery())

	verbose := NewVerboseLevelFrom(app.APICfg.Verbose)
	if verbose > VERBOSE_NONE {
		router.Use(requestLogger(verbose))
	}
	if app.APICfg.Pprof {
		pprof.Register(router)
	}
	if app.CorsConfig != nil {
		log.Info().Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_CORS_ENABLE).
			Bool("cors_allow_all_origins", app.CorsConfig.AllowAllOrigins).
			Any("cors_allow_origins", app.CorsConfig.AllowOrigins).
			Any("cors_allow_methods", app.CorsConfig.AllowMethods).
			Any("cors_allow_headers", app.CorsConfig.AllowHeaders).
			Bool("cors_allow_credentials", app.CorsConfig.AllowCredentials).
			Any("cors_expose_headers", app.CorsConfig.ExposeHeaders).
			Msg("CORS are enabled")
		router.Use(cors.New(*app.CorsConfig))
	}
	if app.AuthCfg.Enabled() {
		log.Info().Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_AUTH_ENABLE).Str("realm", app.AuthCfg.Realm).Msg("Basic auth is enabled")
		router.Use(gin.BasicAuthForRealm(gin.Accounts{app.AuthCfg.User: app.AuthCfg.Pass}, app.AuthCfg.Realm))
	}

	wsUpgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	router.GET("/streams", StreamsListWrapper(app))
	router.POST("/streams", StreamPostWrapper(app))
	router.PUT("/streams", StreamPostWrapper(app))
	router.POST("/streams/:name", StreamPostWrapper(app))
	router.PUT("/streams/:name", StreamPostWrapper(app))
	router.GET("/settings", SettingsGetWrapper(app))
	router.POST("/settings", SettingsPostWrapper(app))
	router.PUT("/settings", SettingsPostWrapper(app))
	router.GET("/watch.m3u8", WatchPlaylistWrapper(app))
	router.GET("/ws", WebSocketWrapper(app, &wsUpgrader))

	if app.APICfg.StaticFilesPath != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(app.APICfg.StaticFilesPath))))
	}
	return router
}

// StartAPIServer starts server with API functionality
func (app *Application) StartAPIServer() error {
	url := fmt.Sprintf("%s:%d", app.APICfg.Host, app.APICfg.Port)
	s := &http.Server{
		Addr:         url,
		Handler:      app.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Info().Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_START).Str("url", url).Msg("Start microservice for API server")
	err := s.ListenAndServe()
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_START).Str("url", url).Msg("Can't start API server routers")
		return err
	}
	return nil
}

// StreamsListWrapper returns list of streams in configuration order with titles playing on them
func StreamsListWrapper(app *Application) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, app.listStreams(ctx.Request.Context()))
	}
}

// StreamPostWrapper applies posted stream. Name from the path wins over the one from the body
func StreamPostWrapper(app *Application) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		posted := Stream{}
		if err := ctx.ShouldBindJSON(&posted); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"Error": err.Error()})
			return
		}
		if name := ctx.Param("name"); name != "" {
			posted.Name = name
		}
		applied, err := app.applyStream(posted)
		switch err {
		case nil:
			ctx.JSON(http.StatusOK, applied)
		case ErrStreamNotFound:
			ctx.JSON(http.StatusNotFound, gin.H{"Error": err.Error()})
		case ErrEmptyStreamName:
			ctx.JSON(http.StatusBadRequest, gin.H{"Error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"Error": err.Error()})
		}
	}
}

// SettingsGetWrapper returns current settings
func SettingsGetWrapper(app *Application) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, app.Settings.get())
	}
}

// SettingsPostWrapper takes editable fields of the posted settings
func SettingsPostWrapper(app *Application) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		posted := EditableSettings{}
		if err := ctx.ShouldBindJSON(&posted); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"Error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, app.updateSettings(ctx.Request.Context(), posted))
	}
}

// WatchPlaylistWrapper returns playlist with transcoder output
func WatchPlaylistWrapper(app *Application) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		playlist, err := app.watchPlaylist()
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"Error": err.Error()})
			return
		}
		ctx.Header("Cache-Control", "no-cache")
		ctx.Data(http.StatusOK, "application/vnd.apple.mpegurl", playlist)
	}
}

// WebSocketWrapper returns WS handler
func WebSocketWrapper(app *Application, wsUpgrader *websocket.Upgrader) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		wshandler(wsUpgrader, ctx.Writer, ctx.Request, app)
	}
}
