package quota

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdLogger_EmitsJSONLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewStdLogger(&buf)

	logger.Info("serving from local fallback", map[string]any{"reason": "breaker_open"})
	logger.Error("store round-trip failed", map[string]any{"bucket": "search-per-minute-requests"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"reason":"breaker_open"`) {
		t.Fatalf("unexpected info line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"error"`) || !strings.Contains(lines[1], `"bucket":"search-per-minute-requests"`) {
		t.Fatalf("unexpected error line: %s", lines[1])
	}
}

func TestStdLogger_NilSafe(t *testing.T) {
	t.Parallel()

	var logger *StdLogger
	logger.Info("ignored", nil)
	logger.Error("ignored", nil)
}
