package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestDialAddr(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{"0.0.0.0:8000", "127.0.0.1:8000"},
		{":8000", "127.0.0.1:8000"},
		{"[::]:8000", "127.0.0.1:8000"},
		{"192.168.1.5:9000", "192.168.1.5:9000"},
		{"[::1]:8000", "[::1]:8000"},
		{"not-an-address", "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			if got := dialAddr(tt.listen); got != tt.want {
				t.Errorf("dialAddr(%q) = %q, want %q", tt.listen, got, tt.want)
			}
		})
	}
}

func TestDebugfFollowsLoggerLevel(t *testing.T) {
	orig := logger
	t.Cleanup(func() { logger = orig })

	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, true},
		{slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.level}))

			debugf("sent %q to %s", "a.mp4", "127.0.0.1:8000")

			if got := strings.Contains(buf.String(), `sent \"a.mp4\" to 127.0.0.1:8000`); got != tt.want {
				t.Errorf("logged = %v, want %v; output %q", got, tt.want, buf.String())
			}
		})
	}
}
