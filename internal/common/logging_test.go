package common

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// --- Logger creation ---

func TestNewLogger_ReturnsNonNil(t *testing.T) {
	logger := NewLogger("info")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNewLoggerFromConfig_FluentAPI(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{Level: "error", Outputs: []string{"console"}})
	logger.Info().Str("tool", "get_issue").Msg("test message")
	logger.Warn().Int("attempt", 2).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Dur("elapsed", 0).Bool("ok", true).Msg("debug")
}

func TestNewLoggerWithOutput_WritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)
	logger.Info().Str("tool", "search_issues").Int("status", 200).Msg("exchange")

	out := buf.String()
	if !strings.Contains(out, "exchange") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if i, j := strings.Index(out, "status="), strings.Index(out, "tool="); i < 0 || j < 0 || i > j {
		t.Errorf("expected fields in sorted order, got %q", out)
	}
}

func TestNewLoggerWithOutput_WritersAreIsolated(t *testing.T) {
	var first, second bytes.Buffer
	a := NewLoggerWithOutput("info", &first)
	b := NewLoggerWithOutput("info", &second)

	a.Info().Msg("from-a")
	b.Info().Msg("from-b")

	if strings.Contains(first.String(), "from-b") {
		t.Errorf("first writer received second logger's output: %q", first.String())
	}
	if strings.Contains(second.String(), "from-a") {
		t.Errorf("second writer received first logger's output: %q", second.String())
	}
	if !strings.Contains(first.String(), "from-a") || !strings.Contains(second.String(), "from-b") {
		t.Errorf("expected each logger to write to its own writer, got %q and %q", first.String(), second.String())
	}
}

// --- Silent logger ---

func TestNewSilentLogger_DoesNotWriteToGlobalWriters(t *testing.T) {
	var buf bytes.Buffer
	_ = NewLoggerWithOutput("info", &buf)
	buf.Reset()

	silent := NewSilentLogger()
	silent.Info().Str("key", "value").Msg("this should NOT appear")
	silent.Error().Msg("this should NOT appear either")

	if buf.Len() > 0 {
		t.Errorf("silent logger wrote %d bytes to global writer: %s", buf.Len(), buf.String())
	}
}

// --- Stdout stays clean for stdio JSON-RPC ---

func TestNewLogger_DoesNotWriteToStdout(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	logger := NewLogger("info")
	logger.Info().Str("tool", "test").Msg("this must not go to stdout")

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	r.Close()

	if buf.Len() > 0 {
		t.Errorf("logger wrote %d bytes to stdout: %s", buf.Len(), buf.String())
	}
}

// --- Correlation ID ---

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	logger := NewLogger("info")
	correlated := logger.WithCorrelationId("dispatch-123")
	if correlated == nil {
		t.Fatal("WithCorrelationId returned nil")
	}
	if correlated == logger {
		t.Error("WithCorrelationId should return a new Logger instance")
	}
}
