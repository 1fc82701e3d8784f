package app

import (
	"testing"

	"github.com/bobmcallan/jira-mcp/internal/common"
	"github.com/bobmcallan/jira-mcp/internal/config"
	"github.com/bobmcallan/jira-mcp/internal/jira"
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Jira.Host = "acme.atlassian.net"
	cfg.Jira.Email = "bot@acme.test"
	cfg.Jira.APIToken = "s3cret-token"
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	a, err := New(testConfig(), common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Registry.Len() != len(jira.DefaultTools()) {
		t.Errorf("expected %d tools, got %d", len(jira.DefaultTools()), a.Registry.Len())
	}
	if a.Dispatcher == nil || a.MCPServer == nil || a.MCPHandler == nil {
		t.Fatal("expected dispatcher, MCP server and handler to be set")
	}
	if a.Cache != nil {
		t.Error("expected cache to be disabled by default")
	}
}

func TestNew_CacheEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	a, err := New(cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Cache == nil {
		t.Fatal("expected cache to be created")
	}
}

func TestVersionInfo_NoCredentials(t *testing.T) {
	a, err := New(testConfig(), common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info := a.VersionInfo()
	if info.JiraHost != "https://acme.atlassian.net" {
		t.Errorf("expected https://acme.atlassian.net, got %s", info.JiraHost)
	}
	if info.APIVersion != 2 {
		t.Errorf("expected api version 2, got %d", info.APIVersion)
	}
}

func TestTransportConfig_FromDefaults(t *testing.T) {
	tc := transportConfig(testConfig())
	def := jira.DefaultTransportConfig()
	if tc.Policy != def.Policy {
		t.Errorf("expected policy %+v, got %+v", def.Policy, tc.Policy)
	}
	if tc.AttemptTimeout != def.AttemptTimeout {
		t.Errorf("expected attempt timeout %v, got %v", def.AttemptTimeout, tc.AttemptTimeout)
	}
}

func TestDispatchPolicy_Kinds(t *testing.T) {
	cfg := testConfig()
	cfg.Dispatch.Retries = 2
	cfg.Dispatch.RetryableKinds = []string{"RateLimited"}
	p := dispatchPolicy(cfg)
	if p.Retries != 2 || len(p.RetryableKinds) != 1 || p.RetryableKinds[0] != jira.KindRateLimited {
		t.Errorf("unexpected policy %+v", p)
	}
}
