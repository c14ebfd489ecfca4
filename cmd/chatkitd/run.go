package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360/chatkit/config"
	"github.com/c360/chatkit/eventbridge"
	"github.com/c360/chatkit/gateway"
	"github.com/c360/chatkit/health"
	"github.com/c360/chatkit/metric"
	"github.com/c360/chatkit/ratelimit"
	"github.com/c360/chatkit/rest"
)

var (
	shutdownTimeout time.Duration
	validateOnly    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway shards and supporting services",
	Long: `Run starts every configured shard under the supervising manager,
serves Prometheus metrics and health when enabled, and publishes dispatch
events through the NATS bridge when enabled. The process runs until it
receives SIGINT or SIGTERM, then drains with a bounded grace period.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	runCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second,
		"grace period for draining shards and the bridge on shutdown")
	runCmd.Flags().BoolVar(&validateOnly, "validate", false,
		"load and validate the configuration, then exit")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(ctx context.Context) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if validateOnly {
		slog.Info("Configuration is valid", "config_path", cfgFile)
		return nil
	}

	slog.Info("Starting chatkitd",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgFile,
		"shard_count", cfg.Gateway.ShardCount,
		"bridge_enabled", cfg.Bridge.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled)

	metricsRegistry := metric.NewMetricsRegistry()
	metrics := metricsRegistry.CoreMetrics()
	monitor := health.NewMonitor(health.WithStatusRecorder(metrics))

	metricsServer := startMetricsServer(cfg, metricsRegistry, monitor)
	if metricsServer != nil {
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				slog.Warn("Metrics server stop", "error", err)
			}
		}()
	}

	restClient, err := buildRESTClient(cfg, logger, metrics, metricsRegistry)
	if err != nil {
		return fmt.Errorf("build REST client: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	bridge, handler, err := startBridge(signalCtx, cfg, logger, metrics, monitor)
	if err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	if bridge != nil {
		defer func() {
			if err := bridge.Stop(shutdownTimeout); err != nil {
				slog.Warn("Bridge drain incomplete", "error", err)
			}
		}()
	}

	manager, err := buildManager(cfg, logger, metrics, monitor, restClient, handler)
	if err != nil {
		return fmt.Errorf("build shard manager: %w", err)
	}

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start shards: %w", err)
	}
	slog.Info("chatkitd started, sessions establishing")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := manager.Shutdown(shutdownTimeout); err != nil {
		slog.Error("Error stopping shards", "error", err)
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("chatkitd shutdown complete")
	return nil
}

// loadConfiguration builds the effective configuration from defaults, the
// optional config file, CHATKIT_* environment overrides, and CLI flags.
// Validation runs once at the end so flag values are covered too.
func loadConfiguration() (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(false)

	if cfgFile != "" {
		loader.AddLayer(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// startMetricsServer starts the Prometheus endpoint when enabled. Returns
// nil when metrics are disabled. The health handler has to be installed
// before Start.
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry, monitor *health.Monitor) *metric.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	srv.SetHealthHandler(health.Handler(monitor, appName))

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	slog.Info("Metrics server listening", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	return srv
}

// buildRESTClient wires the rate-limit registry and global gate from
// configuration into the REST client.
func buildRESTClient(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
	registry *metric.MetricsRegistry,
) (*rest.Client, error) {
	token, err := rest.NewBotToken(cfg.Token)
	if err != nil {
		return nil, err
	}

	buckets, err := ratelimit.NewRegistry(cfg.RateLimit.MaxBuckets, logger, registry)
	if err != nil {
		return nil, err
	}
	gate := ratelimit.NewGlobalGate(cfg.RateLimit.GlobalPerSecond, 0)

	return rest.NewClient(cfg.REST.BaseURL, token,
		rest.WithLogger(logger),
		rest.WithMetrics(metrics),
		rest.WithBucketRegistry(buckets),
		rest.WithGlobalGate(gate),
		rest.WithTimeout(cfg.REST.Timeout),
		rest.WithMaxRetries(cfg.REST.MaxRetries),
		rest.WithMaxReservationWait(cfg.RateLimit.MaxReservationWait),
	)
}

// startBridge connects the NATS bridge when enabled and returns the event
// handler shards dispatch through. Without a bridge, dispatch events are
// only logged at debug level.
func startBridge(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
	monitor *health.Monitor,
) (*eventbridge.Bridge, gateway.EventHandler, error) {
	if !cfg.Bridge.Enabled {
		return nil, func(shardID int, ev gateway.Event) {
			slog.Debug("Dispatch event", "shard_id", shardID, "type", ev.Type, "sequence", ev.Sequence)
		}, nil
	}

	bridge, err := eventbridge.New(eventbridge.Config{
		URLs:          cfg.Bridge.URLs,
		SubjectPrefix: cfg.Bridge.SubjectPrefix,
		QueueSize:     cfg.Bridge.QueueSize,
		Workers:       cfg.Bridge.Workers,
	},
		eventbridge.WithLogger(logger),
		eventbridge.WithMetrics(metrics),
		eventbridge.WithHealthMonitor(monitor),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := bridge.Start(ctx); err != nil {
		return nil, nil, err
	}

	return bridge, bridge.Handle, nil
}

// buildManager assembles the shard manager. An unset intents bitmask falls
// back to the unprivileged default set.
func buildManager(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
	monitor *health.Monitor,
	restClient *rest.Client,
	handler gateway.EventHandler,
) (*gateway.Manager, error) {
	intents := gateway.Intents(cfg.Gateway.Intents)
	if intents == gateway.IntentsNone {
		intents = gateway.IntentsDefault
	}

	return gateway.NewManager(gateway.Config{
		URL:        cfg.Gateway.URL,
		Token:      cfg.Token,
		Intents:    intents,
		ShardCount: cfg.Gateway.ShardCount,
		Compress:   cfg.Gateway.Compress,
	},
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithHealthMonitor(monitor),
		gateway.WithRESTClient(restClient),
		gateway.WithEventHandler(handler),
		gateway.WithLifecycleHandler(logLifecycle),
	)
}

// logLifecycle reports shard transitions at a level matching their severity.
func logLifecycle(ev gateway.LifecycleEvent) {
	switch ev.Kind {
	case gateway.ShardFatal:
		slog.Error("Shard failed fatally", "shard_id", ev.ShardID, "error", ev.Err)
	case gateway.ShardDisconnected:
		slog.Warn("Shard disconnected", "shard_id", ev.ShardID, "error", ev.Err)
	default:
		slog.Info("Shard lifecycle", "shard_id", ev.ShardID, "transition", ev.Kind.String())
	}
}
