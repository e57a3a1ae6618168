package player

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	socketWaitAttempts = 50
	socketWaitInterval = 100 * time.Millisecond
)

// MPV is an mpv process controlled through its IPC socket.
type MPV struct {
	*IPC

	cmd       *exec.Cmd
	socketDir string
	exited    chan struct{}
}

// StartMPV launches binary with opts and connects to its IPC socket.
func StartMPV(ctx context.Context, binary string, opts Options) (*MPV, error) {
	path, err := lookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", binary, err)
	}

	// Randomized socket dir (prevents symlink attacks)
	socketDir, err := os.MkdirTemp("", "mpvrelay-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	socketPath := filepath.Join(socketDir, "socket")

	args := append(opts.Args(),
		"--input-ipc-server="+socketPath,
		"--no-terminal",
	)

	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		os.RemoveAll(socketDir)
		return nil, fmt.Errorf("starting mpv: %w", err)
	}

	m := &MPV{cmd: cmd, socketDir: socketDir, exited: make(chan struct{})}
	go func() {
		cmd.Wait()
		close(m.exited)
	}()

	conn, err := m.dial(ctx, socketPath)
	if err != nil {
		m.kill()
		return nil, err
	}

	m.IPC = NewIPC(conn)
	return m, nil
}

// dial waits for mpv to create its socket and connects to it.
func (m *MPV) dial(ctx context.Context, socketPath string) (net.Conn, error) {
	for i := 0; i < socketWaitAttempts; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			conn, err := net.Dial("unix", socketPath)
			if err != nil {
				return nil, fmt.Errorf("connecting to mpv socket: %w", err)
			}
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.exited:
			return nil, fmt.Errorf("mpv exited during startup")
		case <-time.After(socketWaitInterval):
		}
	}
	return nil, fmt.Errorf("mpv socket %s did not appear", socketPath)
}

// Close disconnects from mpv and terminates the process.
func (m *MPV) Close() error {
	var err error
	if m.IPC != nil {
		err = m.IPC.Close()
	}
	m.kill()
	return err
}

func (m *MPV) kill() {
	select {
	case <-m.exited:
	default:
		m.cmd.Process.Kill()
		<-m.exited
	}
	os.RemoveAll(m.socketDir)
}
