package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateEngineConfig(&config.Engine)...)
	errs = append(errs, validateSyncConfig(&config.Sync)...)
	errs = append(errs, validateCompareConfig(&config.Compare)...)
	errs = append(errs, validateDashboardConfig(&config.Dashboard)...)
	errs = append(errs, validateNotifyConfig(&config.Notify)...)
	errs = append(errs, validateMetricsConfig(&config.Metrics)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

func validateEngineConfig(config *EngineConfig) []error {
	var errs []error

	u, err := url.Parse(config.URL)
	switch {
	case config.URL == "":
		errs = append(errs, ValidationError{Field: "engine.url", Message: "is required"})
	case err != nil:
		errs = append(errs, ValidationError{Field: "engine.url", Message: err.Error()})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{Field: "engine.url", Message: "scheme must be http or https"})
	case u.Host == "":
		errs = append(errs, ValidationError{Field: "engine.url", Message: "host is required"})
	}

	if config.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "engine.timeout", Message: "must be non-negative"})
	}

	return errs
}

func validateSyncConfig(config *SyncConfig) []error {
	var errs []error

	if config.Interval <= 0 {
		errs = append(errs, ValidationError{Field: "sync.interval", Message: "must be positive"})
	}
	if config.HistoryLimit <= 0 {
		errs = append(errs, ValidationError{Field: "sync.historyLimit", Message: "must be positive"})
	}

	return errs
}

func validateCompareConfig(config *CompareConfig) []error {
	if config.MaxConcurrency <= 0 {
		return []error{ValidationError{Field: "compare.maxConcurrency", Message: "must be positive"}}
	}
	return nil
}

func validateDashboardConfig(config *DashboardConfig) []error {
	var errs []error

	if config.Enabled {
		if err := validateAddress(config.Address); err != nil {
			errs = append(errs, ValidationError{Field: "dashboard.address", Message: err.Error()})
		}
	}

	if (config.Username == "") != (config.PasswordHash == "") {
		errs = append(errs, ValidationError{
			Field:   "dashboard.passwordHash",
			Message: "username and passwordHash must be set together",
		})
	}

	if config.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(config.PasswordHash)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "dashboard.passwordHash",
				Message: "must be a bcrypt hash (see 'mvccview hash-password')",
			})
		}
	}

	return errs
}

func validateNotifyConfig(config *NotifyConfig) []error {
	if config.TTL <= 0 {
		return []error{ValidationError{Field: "notify.ttl", Message: "must be positive"}}
	}
	return nil
}

func validateMetricsConfig(config *MetricsConfig) []error {
	if config.Enabled && !strings.HasPrefix(config.Path, "/") {
		return []error{ValidationError{Field: "metrics.path", Message: "must start with /"}}
	}
	return nil
}

func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

// validateAddress validates a network address in host:port format.
func validateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	return nil
}
