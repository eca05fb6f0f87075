package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/config"
)

// configCmd handles the config command.
func configCmd(args []string) int {
	if len(args) == 0 {
		printConfigUsage(stdout)
		return 0
	}

	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stdout)
		return 0
	}

	switch args[0] {
	case "validate":
		return configValidateCmd(args[1:])
	case "init":
		return configInitCmd(args[1:])
	case "show":
		return configShowCmd(args[1:])
	default:
		fmt.Fprintf(stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, "Run 'mvccview config help' for usage.")
		return 1
	}
}

// configValidateCmd handles the config validate subcommand.
func configValidateCmd(args []string) int {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Fprintln(stdout, "Validate configuration file")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Usage:")
		fmt.Fprintln(stdout, "  mvccview config validate -config <file>")
		return 0
	}

	if *configFile == "" {
		fmt.Fprintln(stderr, "Error: -config is required")
		return 1
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	if !reportValidation(cfg) {
		return 1
	}

	fmt.Fprintln(stdout, "Configuration is valid")
	return 0
}

// configInitCmd handles the config init subcommand.
func configInitCmd(args []string) int {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Fprintln(stdout, "Generate default configuration")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Usage:")
		fmt.Fprintln(stdout, "  mvccview config init")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Outputs default configuration to stdout in YAML format.")
		return 0
	}

	data, err := config.MarshalYAML(config.DefaultConfig())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to marshal config: %v\n", err)
		return 1
	}
	stdout.Write(data)
	return 0
}

// configShowCmd handles the config show subcommand.
func configShowCmd(args []string) int {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	format := fs.String("format", "yaml", "Output format (yaml, json)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Fprintln(stdout, "Show effective configuration")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Usage:")
		fmt.Fprintln(stdout, "  mvccview config show [-config <file>] [-format yaml|json]")
		return 0
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	switch strings.ToLower(*format) {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Failed to marshal config: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
	default:
		data, err := config.MarshalYAML(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to marshal config: %v\n", err)
			return 1
		}
		stdout.Write(data)
	}

	return 0
}

// loadConfig reads path, or starts from defaults when path is empty, and
// applies environment overrides. It does not validate.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reportValidation prints validation errors and reports whether cfg is valid.
func reportValidation(cfg *config.Config) bool {
	errs := config.ValidateConfig(cfg)
	if len(errs) == 0 {
		return true
	}
	fmt.Fprintln(stderr, "Configuration errors:")
	for _, e := range errs {
		fmt.Fprintf(stderr, "  - %s\n", e)
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern MVCCVIEW_<SECTION>_<KEY>.
func applyEnvOverrides(cfg *config.Config) error {
	// Engine overrides
	if v := os.Getenv("MVCCVIEW_ENGINE_URL"); v != "" {
		cfg.Engine.URL = v
	}
	if err := envDuration("MVCCVIEW_ENGINE_TIMEOUT", &cfg.Engine.Timeout); err != nil {
		return err
	}

	// Sync overrides
	if err := envDuration("MVCCVIEW_SYNC_INTERVAL", &cfg.Sync.Interval); err != nil {
		return err
	}
	if err := envInt("MVCCVIEW_SYNC_HISTORY_LIMIT", &cfg.Sync.HistoryLimit); err != nil {
		return err
	}

	if err := envInt("MVCCVIEW_COMPARE_MAX_CONCURRENCY", &cfg.Compare.MaxConcurrency); err != nil {
		return err
	}

	// Dashboard overrides
	if v := os.Getenv("MVCCVIEW_DASHBOARD_ADDRESS"); v != "" {
		cfg.Dashboard.Address = v
	}
	if v := os.Getenv("MVCCVIEW_DASHBOARD_USERNAME"); v != "" {
		cfg.Dashboard.Username = v
	}
	if v := os.Getenv("MVCCVIEW_DASHBOARD_PASSWORD_HASH"); v != "" {
		cfg.Dashboard.PasswordHash = v
	}

	if err := envDuration("MVCCVIEW_NOTIFY_TTL", &cfg.Notify.TTL); err != nil {
		return err
	}

	if v := os.Getenv("MVCCVIEW_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// Logging overrides
	if v := os.Getenv("MVCCVIEW_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MVCCVIEW_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MVCCVIEW_LOGGING_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}
