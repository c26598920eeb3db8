package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LdDl/kickoff/panel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authUser   string
	authPass   string
	userAgent  string
	android    bool
	sequential bool
	timeout    time.Duration
	verbose    bool
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "url", "u", "http://localhost:8080/", "Base URL of kickoff server")
	rootCmd.PersistentFlags().StringVar(&authUser, "user", "", "Basic auth user")
	rootCmd.PersistentFlags().StringVar(&authPass, "pass", "", "Basic auth password")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "Detect platform from this User-Agent")
	rootCmd.PersistentFlags().BoolVar(&android, "android", false, "Build watch link for Android (ignored when --user-agent is set)")
	rootCmd.PersistentFlags().BoolVar(&sequential, "sequential", false, "Save streams one by one when switching")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Timeout of single command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests")

	rootCmd.AddCommand(listCmd, switchCmd, resolutionCmd, watchCmd)
}

var rootCmd = &cobra.Command{
	Use:           "kickoff_panel",
	Short:         "Control panel for kickoff server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print streams, settings and watch link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctrl, err := prepareController(ctx)
		if err != nil {
			return err
		}
		printState(ctrl.Store().State())
		return nil
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch NAME",
	Short: "Make NAME the only active stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctrl, err := prepareController(ctx)
		if err != nil {
			return err
		}
		target := ctrl.StreamByName(args[0])
		if target == nil {
			return errors.Errorf("No stream named '%s'", args[0])
		}
		if err := ctrl.SwitchStream(ctx, target).Wait(ctx); err != nil {
			return errors.Wrap(err, "Can't switch stream")
		}
		printState(ctrl.Store().State())
		return nil
	},
}

var resolutionCmd = &cobra.Command{
	Use:   "resolution WIDTHxHEIGHT",
	Short: "Change video resolution of the transcoder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctrl, err := prepareController(ctx)
		if err != nil {
			return err
		}
		ctrl.SetVideoRes(args[0])
		call, err := ctrl.ChangeSettings(ctx)
		if err != nil {
			return err
		}
		if err := call.Wait(ctx); err != nil {
			return errors.Wrap(err, "Can't save settings")
		}
		printState(ctrl.Store().State())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print watch link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctrl, err := prepareController(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ctrl.WatchURL())
		return nil
	},
}

func prepareController(ctx context.Context) (*panel.Controller, error) {
	opts := []panel.ClientOption{}
	if authUser != "" {
		opts = append(opts, panel.WithBasicAuth(authUser, authPass))
	}
	if verbose {
		opts = append(opts, panel.WithClientLogger(logger))
	}
	client, err := panel.NewClient(serverURL, opts...)
	if err != nil {
		return nil, err
	}

	var platform panel.Detector = panel.StaticPlatform(android)
	if userAgent != "" {
		platform = panel.UserAgent(userAgent)
	}
	ctrlOpts := []panel.Option{panel.WithLogger(logger)}
	if sequential {
		ctrlOpts = append(ctrlOpts, panel.WithSequentialSaves())
	}

	ctrl := panel.NewController(ctx,
		panel.NewResource[panel.Stream](client, "streams/:Name"),
		panel.NewResource[panel.Settings](client, "settings/"),
		platform,
		ctrlOpts...,
	)
	if err := ctrl.Wait(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func printState(state panel.State) {
	for _, stream := range state.Streams {
		mark := " "
		if stream.Active {
			mark = "*"
		}
		switch {
		case stream.PlayingSubtitle != "":
			fmt.Printf("%s %s (%s: %s)\n", mark, stream.Name, stream.PlayingTitle, stream.PlayingSubtitle)
		case stream.PlayingTitle != "":
			fmt.Printf("%s %s (%s)\n", mark, stream.Name, stream.PlayingTitle)
		default:
			fmt.Printf("%s %s\n", mark, stream.Name)
		}
	}
	fmt.Printf("resolution: %s\n", state.VideoRes)
	fmt.Printf("watch: %s\n", state.WatchURL)
	if state.Err != nil {
		fmt.Printf("error: %s\n", state.Err)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Str("scope", panel.SCOPE_CONTROLLER).Msg("Command failed")
		cancel()
		os.Exit(1)
	}
}
