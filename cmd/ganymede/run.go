package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/history"
	"mercator-hq/ganymede/pkg/history/retention"
	"mercator-hq/ganymede/pkg/memory"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/summarizer"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
	"mercator-hq/ganymede/pkg/upstream/gemini"
)

var (
	// Run command flags
	listenAddr string
	logLevel   string
	dryRun     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the chat proxy server",
	Long: `Start the Ganymede chat proxy server.

The server loads its configuration from the file given with --config,
overlaid with GANYMEDE_* environment variables. Without a config file it
runs entirely from environment variables and defaults. A .env file in the
working directory is loaded if present.`,
	RunE: runServer,
}

func init() {
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate configuration and exit")

	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Local development keys live in .env; absence is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	applyFlagOverrides(cfg)

	if dryRun {
		fmt.Println("configuration is valid")
		return nil
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logger.Info("starting ganymede",
		"version", Version,
		"commit", GitCommit,
		"listen", cfg.Server.ListenAddress,
		"primary_model", cfg.Models.Primary,
		"fallback_model", cfg.Models.Fallback)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := tracing.New(tracing.Config{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		ServiceName: "ganymede",
		SampleRatio: cfg.Telemetry.Tracing.SampleRatio,
		Insecure:    cfg.Telemetry.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(metrics.Config{EnableGoMetrics: true})

	store := memory.NewStore(cfg.Memory.Path)

	client := gemini.New(gemini.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		APIKey:          cfg.Upstream.APIKey,
		GenerateTimeout: cfg.Upstream.GenerateTimeout,
	})

	var transcript *history.Store
	var pruner *retention.Scheduler
	if cfg.History.Enabled {
		transcript, err = history.New(history.Config{Path: cfg.History.Path})
		if err != nil {
			return fmt.Errorf("failed to open transcript store: %w", err)
		}
		defer transcript.Close()

		pruner = retention.NewScheduler(transcript, retention.Config{
			Schedule:  cfg.History.PruneSchedule,
			Retention: cfg.History.Retention,
		})
		if err := pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		defer pruner.Stop()
	}

	summ := summarizer.New(client, store, summarizer.Config{
		Model:      cfg.Summarizer.Model,
		RunTimeout: cfg.Summarizer.RunTimeout,
	}, collector.Summarizer)

	api := server.NewAPI(client, store, transcript, summ, modelPolicy(cfg), collector)

	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				api.SetPolicy(modelPolicy(next))
			}); err != nil {
				logger.Error("config watcher exited", "error", err)
			}
		}()
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Warn("config watcher stop failed", "error", err)
			}
		}()
	}

	checker := health.New(5*time.Second, Version)
	checker.RegisterCheck("memory", func(ctx context.Context) error {
		return store.Ping()
	})
	if transcript != nil {
		checker.RegisterCheck("transcript", transcript.Ping)
	}

	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, api, checker, collector, summ)

	return srv.Start(ctx)
}

// loadConfiguration loads from the --config file when given, otherwise from
// environment variables and defaults alone.
func loadConfiguration() (*config.Config, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %q: %w", cfgFile, err)
		}
		return config.LoadConfigWithEnvOverrides(cfgFile)
	}
	return config.LoadFromEnv()
}

// applyFlagOverrides applies command-line flag overrides to the config.
func applyFlagOverrides(cfg *config.Config) {
	if listenAddr != "" {
		cfg.Server.ListenAddress = listenAddr
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
}

func modelPolicy(cfg *config.Config) relay.ModelPolicy {
	return relay.ModelPolicy{
		Primary:               cfg.Models.Primary,
		Fallback:              cfg.Models.Fallback,
		Known:                 cfg.Models.Known,
		ShortMessageThreshold: cfg.Models.ShortMessageThreshold,
	}
}
