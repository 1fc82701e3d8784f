package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/jira-mcp/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Jira      JiraConfig           `toml:"jira"`
	Transport TransportConfig      `toml:"transport"`
	Dispatch  DispatchConfig       `toml:"dispatch"`
	Cache     CacheConfig          `toml:"cache"`
	Server    ServerConfig         `toml:"server"`
	Logging   common.LoggingConfig `toml:"logging"`

	// envErrs collects environment values that could not be parsed; Validate reports them.
	envErrs []error
}

// JiraConfig identifies the JIRA site and account.
// APIToken is a secret: it is never logged and never echoed in errors.
type JiraConfig struct {
	Host       string `toml:"host"`
	Email      string `toml:"email"`
	APIToken   string `toml:"api_token"`
	APIVersion int    `toml:"api_version"` // 2 or 3
	UserAgent  string `toml:"user_agent"`
}

// TransportConfig contains HTTP timeout and retry settings. Durations are Go duration strings.
type TransportConfig struct {
	AttemptTimeout   string  `toml:"attempt_timeout"`
	ConnectTimeout   string  `toml:"connect_timeout"`
	MaxAttempts      int     `toml:"max_attempts"`
	BaseBackoff      string  `toml:"base_backoff"`
	BackoffFactor    float64 `toml:"backoff_factor"`
	MaxBackoff       string  `toml:"max_backoff"`
	MaxRetryAfter    string  `toml:"max_retry_after"`
	MaxResponseBytes int64   `toml:"max_response_bytes"`
}

// DispatchConfig controls dispatcher-level re-invocation.
type DispatchConfig struct {
	Retries        int      `toml:"retries"`
	RetryableKinds []string `toml:"retryable_kinds"`
}

// CacheConfig controls the reference-data response cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name      string `toml:"name"`
	Port      int    `toml:"port"`
	AuthToken string `toml:"auth_token"` // optional bearer token for HTTP mode
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// checkDuration accepts an empty value (the default applies) or a positive Go duration.
func checkDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%q is not a duration such as \"30s\"", s)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", s)
	}
	return nil
}

// GetAttemptTimeout returns the per-attempt timeout.
func (c *TransportConfig) GetAttemptTimeout() time.Duration {
	return parseDuration(c.AttemptTimeout, 30*time.Second)
}

// GetConnectTimeout returns the dial timeout.
func (c *TransportConfig) GetConnectTimeout() time.Duration {
	return parseDuration(c.ConnectTimeout, 10*time.Second)
}

// GetBaseBackoff returns the first retry delay.
func (c *TransportConfig) GetBaseBackoff() time.Duration {
	return parseDuration(c.BaseBackoff, 500*time.Millisecond)
}

// GetMaxBackoff returns the backoff cap.
func (c *TransportConfig) GetMaxBackoff() time.Duration {
	return parseDuration(c.MaxBackoff, 8*time.Second)
}

// GetMaxRetryAfter returns the cap applied to Retry-After hints.
func (c *TransportConfig) GetMaxRetryAfter() time.Duration {
	return parseDuration(c.MaxRetryAfter, 60*time.Second)
}

// GetTTL returns the cache entry lifetime.
func (c *CacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 5*time.Minute)
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Missing files are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies JIRA_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if host := os.Getenv("JIRA_HOST"); host != "" {
		config.Jira.Host = host
	}
	if email := os.Getenv("JIRA_EMAIL"); email != "" {
		config.Jira.Email = email
	}
	if token := os.Getenv("JIRA_API_TOKEN"); token != "" {
		config.Jira.APIToken = token
	}
	if v := os.Getenv("JIRA_API_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Jira.APIVersion = n
		} else {
			config.envErrs = append(config.envErrs, errors.New("JIRA_API_VERSION must be an integer"))
		}
	}
	if level := os.Getenv("JIRA_MCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if port := os.Getenv("JIRA_MCP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		} else {
			config.envErrs = append(config.envErrs, errors.New("JIRA_MCP_PORT must be an integer"))
		}
	}
	if token := os.Getenv("JIRA_MCP_AUTH_TOKEN"); token != "" {
		config.Server.AuthToken = token
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, logLevel string) {
	if port > 0 {
		config.Server.Port = port
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate reports every missing or out-of-range setting at once.
// Messages name the setting, never its value.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	if strings.TrimSpace(c.Jira.Host) == "" {
		errs = append(errs, errors.New("JIRA_HOST is required"))
	}
	if strings.TrimSpace(c.Jira.Email) == "" {
		errs = append(errs, errors.New("JIRA_EMAIL is required"))
	}
	if strings.TrimSpace(c.Jira.APIToken) == "" {
		errs = append(errs, errors.New("JIRA_API_TOKEN is required"))
	}
	if c.Jira.APIVersion != 2 && c.Jira.APIVersion != 3 {
		errs = append(errs, fmt.Errorf("jira.api_version must be 2 or 3, got %d", c.Jira.APIVersion))
	}
	if c.Transport.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("transport.max_attempts must be at least 1, got %d", c.Transport.MaxAttempts))
	}
	if c.Transport.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("transport.backoff_factor must be at least 1, got %g", c.Transport.BackoffFactor))
	}
	if c.Dispatch.Retries < 0 {
		errs = append(errs, fmt.Errorf("dispatch.retries must not be negative, got %d", c.Dispatch.Retries))
	}
	for _, k := range c.Dispatch.RetryableKinds {
		if k != "RateLimited" && k != "ServerFault" {
			errs = append(errs, fmt.Errorf("dispatch.retryable_kinds: %q is not RateLimited or ServerFault", k))
		}
	}
	durations := []struct{ name, value string }{
		{"transport.attempt_timeout", c.Transport.AttemptTimeout},
		{"transport.connect_timeout", c.Transport.ConnectTimeout},
		{"transport.base_backoff", c.Transport.BaseBackoff},
		{"transport.max_backoff", c.Transport.MaxBackoff},
		{"transport.max_retry_after", c.Transport.MaxRetryAfter},
		{"cache.ttl", c.Cache.TTL},
	}
	for _, d := range durations {
		if err := checkDuration(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be at least 1 when the cache is enabled"))
	}
	return errors.Join(errs...)
}
