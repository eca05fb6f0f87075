package config

import "time"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			URL:     "http://127.0.0.1:5001/api",
			Timeout: 5 * time.Second,
		},
		Sync: SyncConfig{
			Interval:     3 * time.Second,
			HistoryLimit: 10,
		},
		Compare: CompareConfig{
			MaxConcurrency: 8,
		},
		Dashboard: DashboardConfig{
			Enabled:     true,
			Address:     "127.0.0.1:8090",
			CORSOrigins: []string{"*"},
		},
		Notify: NotifyConfig{
			TTL: 3 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
