package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	t.Parallel()

	var js bytes.Buffer
	newLogger(&js, "info", "json", false).Info("catalog.borrow", "book_id", 7)
	if !strings.HasPrefix(js.String(), "{") || !strings.Contains(js.String(), `"book_id":7`) {
		t.Fatalf("expected JSON line, got %q", js.String())
	}

	var pretty bytes.Buffer
	newLogger(&pretty, "warn", "pretty", false).Info("dropped")
	if pretty.Len() != 0 {
		t.Fatalf("info must be filtered at warn level: %q", pretty.String())
	}
	newLogger(&pretty, "warn", "pretty", false).Warn("catalog.home.visits_fail")
	if !strings.Contains(pretty.String(), "[WARN] catalog.home.visits_fail") {
		t.Fatalf("expected pretty line, got %q", pretty.String())
	}
}
