// ABOUTME: Entry point for motionsync
// ABOUTME: Builds the cobra command tree and runs the selected command
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/motionsync/motionsync-go/internal/app"
	"github.com/motionsync/motionsync-go/internal/settings"
	"github.com/motionsync/motionsync-go/internal/ui"
	"github.com/motionsync/motionsync-go/internal/version"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type runOptions struct {
	noTUI    bool
	logFile  string
	logLevel string
	script   string
	simulate bool
}

func newRootCommand() *cobra.Command {
	var configPath string
	var opts runOptions

	rootCmd := &cobra.Command{
		Use:           "motionsync",
		Short:         "Drive motion devices in sync with media playback",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, configPath, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file path")
	addRunFlags(rootCmd, &opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the motion pipeline (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, configPath, opts)
		},
	}
	addRunFlags(runCmd, &opts)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newTargetsCommand(&configPath))
	rootCmd.AddCommand(newDiscoverCommand())
	rootCmd.AddCommand(newConfigCommand(&configPath))
	return rootCmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the TUI and stream logs to stdout")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "motionsync.log", "Log file path")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "Funscript to load at startup")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "Use the simulated media source")
}

func runPipeline(cmd *cobra.Command, configPath string, opts runOptions) error {
	s, path, exists, err := settings.Load(configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if opts.script != "" {
		s.Script.Path = opts.script
	}
	if opts.simulate {
		s.Media.Source = "simulated"
	}
	if opts.logLevel != "" {
		s.Logging.Level = strings.ToLower(opts.logLevel)
	}
	if opts.logFile != "" && s.Logging.File == "" {
		s.Logging.File = opts.logFile
	}

	useTUI := !opts.noTUI && isatty.IsTerminal(os.Stdout.Fd())

	logger, closeLog, err := newLogger(s.Logging, useTUI, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting", "version", version.String(), "settings", path, "settings_found", exists)

	release, err := acquireInstanceLock(lockPath(path))
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(app.Config{Settings: s, Logger: logger})
	if err != nil {
		return err
	}

	if !useTUI {
		return a.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	program := ui.New(a)
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		logger.Error("TUI failed", "error", err)
	}

	cancel()
	return <-runErr
}
