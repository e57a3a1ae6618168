package player

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"mpvrelay/internal/player/mpvtest"
)

func TestMain(m *testing.M) {
	mpvtest.Run()
	os.Exit(m.Run())
}

func startFakeMPV(t *testing.T, mode string) (*MPV, error) {
	t.Helper()
	t.Setenv(mpvtest.Env, mode)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return StartMPV(ctx, os.Args[0], Options{Ytdl: true, Resolution: 720})
}

func TestStartMPVRoundTrip(t *testing.T) {
	m, err := startFakeMPV(t, mpvtest.ModeServe)
	if err != nil {
		t.Fatalf("StartMPV() error: %v", err)
	}
	defer m.Close()

	ev, ok := m.WaitEvent(5 * time.Second)
	if !ok || ev.Name != "idle" {
		t.Errorf("WaitEvent() = %v, %v, want idle", ev, ok)
	}

	if err := LoadFile(m, "http://example.com/video.mp4"); err != nil {
		t.Errorf("LoadFile() error: %v", err)
	}
	if err := m.Command("bogus"); err == nil || !strings.Contains(err.Error(), "invalid parameter") {
		t.Errorf("Command(bogus) error = %v, want rejection", err)
	}
}

func TestMPVCloseStopsProcess(t *testing.T) {
	m, err := startFakeMPV(t, mpvtest.ModeServe)
	if err != nil {
		t.Fatalf("StartMPV() error: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	select {
	case <-m.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("mpv process still running after Close")
	}
	if _, err := os.Stat(m.socketDir); !os.IsNotExist(err) {
		t.Errorf("socket dir %s still present: %v", m.socketDir, err)
	}
	if err := LoadFile(m, "a.mp4"); err == nil {
		t.Error("LoadFile() after Close succeeded")
	}
}

func TestStartMPVExitDuringStartup(t *testing.T) {
	_, err := startFakeMPV(t, mpvtest.ModeExit)
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Errorf("StartMPV() error = %v, want early exit", err)
	}
}

func TestStartMPVHonoursContext(t *testing.T) {
	t.Setenv(mpvtest.Env, mpvtest.ModeSilent)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := StartMPV(ctx, os.Args[0], Options{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("StartMPV() error = %v, want deadline exceeded", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("StartMPV() took %s after the context expired", took)
	}
}

func TestStartMPVMissingBinary(t *testing.T) {
	_, err := StartMPV(context.Background(), "mpvrelay-no-such-player", Options{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("StartMPV() error = %v, want not found", err)
	}
}
