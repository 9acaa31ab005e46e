package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mo9a7i/timebot/internal/config"
	"github.com/mo9a7i/timebot/internal/github"
	"github.com/mo9a7i/timebot/internal/metrics"
	"github.com/mo9a7i/timebot/internal/scheduler"
	"github.com/mo9a7i/timebot/internal/service"
	"github.com/mo9a7i/timebot/internal/ui"
	"github.com/mo9a7i/timebot/internal/workflow"
	"github.com/spf13/cobra"
)

const version = "1.2.3"

var (
	configPath         string
	envFile            string
	logCleanupFailures bool
	assumeYes          bool
)

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

// loadConfig reads configuration and fails fast when the token is missing
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-cleanup-failures") {
		cfg.Policy.LogCleanupFailures = logCleanupFailures
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := scheduler.Validate(cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newService(cfg *config.Config, logger *log.Logger, prompter ui.Prompter, recorder workflow.Recorder) (*service.BotService, error) {
	client, err := github.NewClient(github.Options{
		Token:     cfg.GitHub.Token,
		Host:      cfg.GitHub.Host,
		UserAgent: cfg.GitHub.UserAgent,
		Timeout:   cfg.GitHub.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	runner := workflow.NewRunner(client, workflow.Options{
		Repo:               cfg.Repository,
		BetweenSteps:       cfg.Delays.BetweenSteps,
		RetryBase:          cfg.Delays.RetryBase,
		MaxAttempts:        cfg.Delays.MaxAttempts,
		LogCleanupFailures: cfg.Policy.LogCleanupFailures,
	}, logger, workflow.WithRecorder(recorder))

	return service.NewBotService(client, runner, cfg.Repository, prompter, logger), nil
}

func serveCommand(cmd *cobra.Command) error {
	logger := newLogger()

	// installed first so a signal during startup also exits 0
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	go func() {
		sig := <-sigCh
		// in-flight runs are abandoned, not drained
		logger.Printf("%s received, shutting down", sig)
		os.Exit(0)
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := metrics.NewMetrics()
	bot, err := newService(cfg, logger, ui.AutoConfirm{}, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := bot.Preflight(ctx); err != nil {
		logger.Printf("Warning: %v", err)
	}

	sched, err := scheduler.New(cfg.Schedule.Cron, cfg.Schedule.RunOnStart, bot.Job(), logger)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Printf("Error: %v", err)
			}
		}()
	}

	logger.Printf("running github bot (v%s) against %s", version, cfg.Repository.FullName())
	sched.Start(ctx)

	// the signal goroutine ends the process
	select {}
}

func onceCommand(cmd *cobra.Command) error {
	logger := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var prompter ui.Prompter = &ui.DefaultPrompter{}
	if assumeYes {
		prompter = ui.AutoConfirm{}
	}
	bot, err := newService(cfg, logger, prompter, metrics.NewMetrics())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	report, err := bot.RunOnce(ctx)
	if errors.Is(err, service.ErrCancelled) {
		fmt.Println("Run cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Print(ui.FormatReport(report))
	return report.Err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "timebot",
		Short: "Keep a repository's clock up to date through issues and pull requests",
		Long: `timebot periodically opens an issue, commits the current time into a
((...)) placeholder on a working branch, opens a pull request, reviews and
merges it, then comments on and closes the issue.

Set GITHUB_TOKEN (or GH_TOKEN) before running.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCommand(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&logCleanupFailures, "log-cleanup-failures", false, "Log failures of the issue comment and close steps")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run once now, then on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCommand(cmd)
		},
	}

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run the workflow a single time and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onceCommand(cmd)
		},
	}
	onceCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(serveCmd, onceCmd)

	if err := rootCmd.Execute(); err != nil {
		newLogger().Printf("Error: %v", err)
		os.Exit(1)
	}
}
