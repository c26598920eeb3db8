package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/LdDl/kickoff"
	"github.com/LdDl/kickoff/configuration"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	cpuprofile          = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile          = flag.String("memprofile", "", "write memory profile to `file`")
	conf                = flag.String("conf", "conf.toml", "Path to configuration JSON-file or TOML-file")
	EVENT_CPU           = "cpu_profile"
	EVENT_MEMORY        = "memory_profile"
	EVENT_APP_START     = "app_start"
	EVENT_APP_STOP      = "app_stop"
	EVENT_APP_SIGNAL_OS = "app_signal_os"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Second
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Error().Err(err).Str("event", EVENT_CPU).Msg("Could not create file for CPU profiling")
			return
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Error().Err(err).Str("event", EVENT_CPU).Msg("Could not start CPU profiling")
			return
		}
		defer pprof.StopCPUProfile()
	}
	appCfg, err := configuration.PrepareConfiguration(*conf)
	if err != nil {
		log.Error().Err(err).Str("scope", kickoff.SCOPE_CONFIGURATION).Msg("Could not prepare application configuration")
		return
	}

	app, err := kickoff.NewApplication(appCfg)
	if err != nil {
		log.Error().Err(err).Str("scope", kickoff.SCOPE_CONFIGURATION).Msg("Could not prepare application")
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Str("scope", kickoff.SCOPE_TITLES).Msg("Could not close application")
		}
	}()

	if strings.ToLower(app.APICfg.Mode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.RestoreSettings(ctx); err != nil {
		log.Warn().Err(err).Str("scope", kickoff.SCOPE_SNAPSHOT).Msg("Could not restore settings, configuration values are used")
	}

	// Run transcoder supervisor
	transcoderDone := make(chan struct{})
	go func() {
		app.RunTranscoder(ctx)
		close(transcoderDone)
	}()

	// Start API server
	exit := make(chan bool, 1)
	go func() {
		if err := app.StartAPIServer(); err != nil {
			exit <- true
		}
	}()

	sigOUT := make(chan os.Signal, 1)
	signal.Notify(sigOUT, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigOUT
		log.Info().Str("event", EVENT_APP_SIGNAL_OS).Any("signal", sig).Msg("Server has captured signal")
		exit <- true
	}()
	log.Info().Str("event", EVENT_APP_START).Msg("Server has been started (awaiting signal to exit)")
	<-exit
	log.Info().Str("event", EVENT_APP_STOP).Msg("Stopping kickoff server")

	// Transcoder must not outlive the server
	cancel()
	<-transcoderDone

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Error().Err(err).Str("event", EVENT_MEMORY).Msg("Could not create file for memory profiling")
			return
		}
		defer f.Close()
		// Explicit for garbage collection
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Error().Err(err).Str("event", EVENT_MEMORY).Msg("Could not write to file for memory profiling")
			return
		}
	}
}
