package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Default should be "dev"
	v := GetVersion()
	if v != "dev" {
		t.Errorf("expected default version dev, got %s", v)
	}
}

func TestGetFullVersion(t *testing.T) {
	fv := GetFullVersion()
	expected := "dev (build: unknown, commit: unknown)"
	if fv != expected {
		t.Errorf("expected full version %q, got %q", expected, fv)
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent(); ua != "jira-mcp/dev" {
		t.Errorf("expected user agent jira-mcp/dev, got %s", ua)
	}
}

func TestLoadVersionFile_FillsDefaultsOnly(t *testing.T) {
	origVersion, origBuild, origCommit := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = origVersion, origBuild, origCommit })

	Build = "from-ldflags"

	path := filepath.Join(t.TempDir(), ".version")
	content := "# release info\nversion: 1.2.3\nbuild: 2026-01-01\ncommit: abc123\nbogus line\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	loadVersionFile(path)

	if Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", Version)
	}
	if Build != "from-ldflags" {
		t.Errorf("expected ldflags build to win, got %s", Build)
	}
	if GitCommit != "abc123" {
		t.Errorf("expected commit abc123, got %s", GitCommit)
	}
}
