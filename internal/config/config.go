// Package config provides configuration parsing and management for the mvccview dashboard.
package config

import "time"

// Config holds the complete dashboard configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine" json:"engine"`
	Sync      SyncConfig      `yaml:"sync" json:"sync"`
	Compare   CompareConfig   `yaml:"compare" json:"compare"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Notify    NotifyConfig    `yaml:"notify" json:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LogConfig       `yaml:"logging" json:"logging"`
}

// EngineConfig describes how to reach the storage engine's JSON API.
type EngineConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// SyncConfig controls the snapshot polling loop.
type SyncConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	// HistoryLimit is how many committed transactions the dashboard lists.
	HistoryLimit int `yaml:"historyLimit" json:"historyLimit"`
}

// CompareConfig controls the side-by-side visibility comparison.
type CompareConfig struct {
	MaxConcurrency int `yaml:"maxConcurrency" json:"maxConcurrency"`
}

// DashboardConfig holds the dashboard HTTP API configuration.
type DashboardConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	Address      string   `yaml:"address" json:"address"`
	Username     string   `yaml:"username" json:"username"`
	PasswordHash string   `yaml:"passwordHash" json:"-"`
	CORSOrigins  []string `yaml:"corsOrigins" json:"corsOrigins"`
}

// NotifyConfig controls engine failure notifications.
type NotifyConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// AuthEnabled reports whether the dashboard API requires Basic auth.
func (d DashboardConfig) AuthEnabled() bool {
	return d.Username != "" && d.PasswordHash != ""
}
