package config

import "github.com/bobmcallan/jira-mcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Jira: JiraConfig{
			APIVersion: 2,
		},
		Transport: TransportConfig{
			AttemptTimeout:   "30s",
			ConnectTimeout:   "10s",
			MaxAttempts:      3,
			BaseBackoff:      "500ms",
			BackoffFactor:    2,
			MaxBackoff:       "8s",
			MaxRetryAfter:    "60s",
			MaxResponseBytes: 10 << 20,
		},
		Dispatch: DispatchConfig{
			Retries:        0,
			RetryableKinds: []string{"RateLimited", "ServerFault"},
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTL:        "5m",
			MaxEntries: 64,
		},
		Server: ServerConfig{
			Name: "jira-mcp",
			Port: 4250,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/jira-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
