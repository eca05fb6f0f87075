package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/config"
	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/rest"
	"github.com/KilimcininKorOglu/mvccview/internal/tui"
)

const shutdownTimeout = 30 * time.Second

// dashboard wires the engine client, the backend, and the optional API.
type dashboard struct {
	config     *config.Config
	configFile string
	logger     logging.Logger
	client     *engine.Client
	backend    *backend.DashboardBackend
	overrides  func(*config.Config)
	restServer *rest.Server
	mu         sync.Mutex
}

// newDashboard builds a dashboard from a validated configuration.
func newDashboard(cfg *config.Config, logger logging.Logger, withAPI bool) (*dashboard, error) {
	client, err := engine.New(cfg.Engine.URL, cfg.Engine.Timeout,
		engine.WithLogger(logger.WithSource("engine")))
	if err != nil {
		return nil, err
	}

	d := &dashboard{
		config:  cfg,
		logger:  logger,
		client:  client,
		backend: backend.New(client, backend.OptionsFromConfig(cfg, logger)),
	}

	if withAPI && cfg.Dashboard.Enabled {
		d.restServer = rest.NewServer(rest.ServerConfigFromConfig(cfg, version), d.backend, logger.WithSource("rest"))
	}
	return d, nil
}

// start launches the poll loop and the API server.
func (d *dashboard) start(ctx context.Context) error {
	go d.backend.Loop().Run(ctx)

	if d.restServer != nil {
		if err := d.restServer.Start(); err != nil {
			return fmt.Errorf("start dashboard API: %w", err)
		}
	}
	return nil
}

func (d *dashboard) stop(ctx context.Context) error {
	if d.restServer != nil {
		return d.restServer.Stop(ctx)
	}
	return nil
}

// watchConfig follows the config file until ctx is done.
func (d *dashboard) watchConfig(ctx context.Context) {
	if d.configFile == "" {
		return
	}
	w, err := config.NewWatcher(config.WatcherConfig{
		FilePath: d.configFile,
		OnChange: d.handleConfigReload,
		OnError: func(err error) {
			d.logger.WithSource("system").Warn("config reload failed", "error", err)
		},
	})
	if err != nil {
		d.logger.WithSource("system").Warn("failed to create config watcher", "error", err)
		return
	}
	d.logger.WithSource("system").Info("config file watcher started", "file", d.configFile)
	go w.Run(ctx)
}

// reload rereads the config file on SIGHUP.
func (d *dashboard) reload() {
	sysLogger := d.logger.WithSource("system")
	if d.configFile == "" {
		sysLogger.Warn("no config file given, nothing to reload")
		return
	}
	cfg, err := config.LoadConfig(d.configFile)
	if err != nil {
		sysLogger.Error("config reload failed", "error", err)
		return
	}

	d.handleConfigReload(nil, cfg)
}

// handleConfigReload applies the runtime-adjustable settings of newCfg.
// Changes are measured against the running configuration, not the
// watcher's previous file contents.
func (d *dashboard) handleConfigReload(_, newCfg *config.Config) {
	sysLogger := d.logger.WithSource("system")
	sysLogger.Info("config file changed, applying hot-reloadable settings")

	if err := applyEnvOverrides(newCfg); err != nil {
		sysLogger.Error("config reload rejected", "error", err)
		return
	}
	if d.overrides != nil {
		d.overrides(newCfg)
	}
	if errs := config.ValidateConfig(newCfg); len(errs) > 0 {
		for _, e := range errs {
			sysLogger.Error("config reload rejected", "error", e)
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	oldCfg := d.config

	d.backend.ApplyConfig(newCfg)

	if oldCfg.Engine.URL != newCfg.Engine.URL || oldCfg.Engine.Timeout != newCfg.Engine.Timeout {
		sysLogger.Warn("engine settings changed, restart required", "url", newCfg.Engine.URL)
	}
	if d.restServer != nil {
		if oldCfg.Dashboard.Username != newCfg.Dashboard.Username ||
			oldCfg.Dashboard.PasswordHash != newCfg.Dashboard.PasswordHash {
			d.restServer.SetCredentials(newCfg.Dashboard.Username, newCfg.Dashboard.PasswordHash)
			sysLogger.Info("dashboard credentials changed", "auth", newCfg.Dashboard.AuthEnabled())
		}
		if oldCfg.Dashboard.Address != newCfg.Dashboard.Address {
			sysLogger.Warn("dashboard address changed, restart required", "address", newCfg.Dashboard.Address)
		}
	}

	d.config = newCfg
	sysLogger.Info("config reload completed")
}

// prepareConfig loads cfgFile, applies flag and environment overrides, and
// validates the result.
func prepareConfig(cfgFile string, override func(*config.Config)) (*config.Config, bool) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return nil, false
	}
	override(cfg)
	if !reportValidation(cfg) {
		return nil, false
	}
	return cfg, true
}

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	engineURL := fs.String("engine", "", "Engine API base URL (overrides config)")
	address := fs.String("address", "", "Dashboard API listen address (overrides config)")
	interval := fs.Duration("interval", 0, "Poll interval (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(stdout)
		return 0
	}

	// Flags take priority over the file and the environment.
	overrides := func(cfg *config.Config) {
		if *engineURL != "" {
			cfg.Engine.URL = *engineURL
		}
		if *address != "" {
			cfg.Dashboard.Address = *address
		}
		if *interval > 0 {
			cfg.Sync.Interval = *interval
		}
		if *logLevel != "" {
			cfg.Logging.Level = *logLevel
		}
	}
	cfg, ok := prepareConfig(*configFile, overrides)
	if !ok {
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	d, err := newDashboard(cfg, logger, true)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create dashboard: %v\n", err)
		return 1
	}
	d.configFile, d.overrides = *configFile, overrides

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.start(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	d.watchConfig(ctx)
	logger.Info("dashboard started", "engine", d.client.BaseURL(), "interval", cfg.Sync.Interval.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			d.logger.WithSource("system").Info("received SIGHUP, reloading configuration")
			d.reload()
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()

			if err := d.stop(shutdownCtx); err != nil {
				fmt.Fprintf(stderr, "Shutdown error: %v\n", err)
				return 1
			}
			return 0
		}
	}
	return 0
}

// watchCmd handles the watch command.
func watchCmd(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	engineURL := fs.String("engine", "", "Engine API base URL (overrides config)")
	interval := fs.Duration("interval", 0, "Poll interval (overrides config)")
	noAPI := fs.Bool("no-api", false, "Do not start the dashboard API")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printWatchUsage(stdout)
		return 0
	}

	overrides := func(cfg *config.Config) {
		if *engineURL != "" {
			cfg.Engine.URL = *engineURL
		}
		if *interval > 0 {
			cfg.Sync.Interval = *interval
		}
	}
	cfg, ok := prepareConfig(*configFile, overrides)
	if !ok {
		return 1
	}

	// The terminal belongs to the dashboard; only file output survives.
	logger := logging.NewNop()
	if cfg.Logging.Output != "" && cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		logger = logging.New(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	}

	d, err := newDashboard(cfg, logger, !*noAPI)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create dashboard: %v\n", err)
		return 1
	}
	d.configFile, d.overrides = *configFile, overrides

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.start(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	d.watchConfig(ctx)

	runErr := tui.Run(ctx, d.backend)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := d.stop(shutdownCtx); err != nil {
		fmt.Fprintf(stderr, "Shutdown error: %v\n", err)
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Dashboard error: %v\n", runErr)
		return 1
	}
	return 0
}
