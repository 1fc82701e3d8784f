package app

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/jira-mcp/internal/cache"
	"github.com/bobmcallan/jira-mcp/internal/common"
	"github.com/bobmcallan/jira-mcp/internal/config"
	"github.com/bobmcallan/jira-mcp/internal/jira"
	"github.com/bobmcallan/jira-mcp/internal/mcp"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Registry   *jira.Registry
	Dispatcher *jira.Dispatcher
	Cache      *cache.ResponseCache // nil unless cache.enabled

	MCPServer  *mcpserver.MCPServer
	MCPHandler *mcp.Handler
}

// New initializes the application with all dependencies.
// The config must already have passed Validate.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	registry, err := jira.NewRegistry(jira.DefaultTools()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	a.Registry = registry

	builder := jira.NewBuilder(jira.Credentials{
		Host:     cfg.Jira.Host,
		Email:    cfg.Jira.Email,
		APIToken: cfg.Jira.APIToken,
	}, cfg.Jira.APIVersion, userAgent(cfg))

	transport := jira.NewTransport(transportConfig(cfg), logger)

	opts := []jira.DispatcherOption{jira.WithDispatchPolicy(dispatchPolicy(cfg))}
	if cfg.Cache.Enabled {
		a.Cache = cache.New(cfg.Cache.GetTTL(), cfg.Cache.MaxEntries)
		opts = append(opts, jira.WithResponseCache(a.Cache))
	}
	a.Dispatcher = jira.NewDispatcher(registry, builder, transport, logger, opts...)

	a.MCPServer = mcp.NewServer(cfg.Server.Name, config.GetVersion(), a.Dispatcher, a.VersionInfo())
	a.MCPHandler = mcp.NewHandler(a.MCPServer, cfg.Server.AuthToken, logger)

	logger.Info().
		Str("jira_host", builder.BaseURL()).
		Int("api_version", builder.APIVersion()).
		Int("tools", registry.Len()).
		Bool("cache", cfg.Cache.Enabled).
		Msg("application initialization complete")

	return a, nil
}

// VersionInfo is what get_version and /api/version report.
func (a *App) VersionInfo() mcp.VersionInfo {
	return mcp.VersionInfo{
		Version:    config.GetVersion(),
		Build:      config.GetBuild(),
		Commit:     config.GetGitCommit(),
		JiraHost:   jira.SiteURL(a.Config.Jira.Host),
		APIVersion: a.Config.Jira.APIVersion,
		Tools:      a.Registry.Len(),
	}
}

func userAgent(cfg *config.Config) string {
	if cfg.Jira.UserAgent != "" {
		return cfg.Jira.UserAgent
	}
	return config.UserAgent()
}

func transportConfig(cfg *config.Config) jira.TransportConfig {
	t := cfg.Transport
	return jira.TransportConfig{
		Policy: jira.RetryPolicy{
			MaxAttempts:   t.MaxAttempts,
			BaseBackoff:   t.GetBaseBackoff(),
			Factor:        t.BackoffFactor,
			MaxBackoff:    t.GetMaxBackoff(),
			MaxRetryAfter: t.GetMaxRetryAfter(),
		},
		AttemptTimeout:   t.GetAttemptTimeout(),
		ConnectTimeout:   t.GetConnectTimeout(),
		MaxResponseBytes: t.MaxResponseBytes,
	}
}

func dispatchPolicy(cfg *config.Config) jira.DispatchPolicy {
	kinds := make([]jira.Kind, 0, len(cfg.Dispatch.RetryableKinds))
	for _, k := range cfg.Dispatch.RetryableKinds {
		kinds = append(kinds, jira.Kind(k))
	}
	return jira.DispatchPolicy{
		Retries:        cfg.Dispatch.Retries,
		RetryableKinds: kinds,
	}
}
