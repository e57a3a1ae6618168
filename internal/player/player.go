// Package player drives an mpv process over its JSON IPC socket.
// mpv is launched with exec.Command and an explicit argument slice;
// no shell is involved at any point.
package player

import (
	"errors"
	"time"

	"mpvrelay/internal/media"
)

// ErrClosed is returned when the IPC connection to mpv is gone.
var ErrClosed = errors.New("mpv connection closed")

// Engine is the single-owner handle to the playback engine.
type Engine interface {
	// Command submits an mpv input command, e.g. "loadfile", url, "append-play".
	Command(args ...string) error

	// WaitEvent returns the next playback event, waiting at most timeout.
	WaitEvent(timeout time.Duration) (media.Event, bool)

	// Close releases the engine.
	Close() error
}

// LoadFile is the command that appends loc to the playlist and starts
// playback if mpv is idle.
func LoadFile(e Engine, loc media.Locator) error {
	return e.Command("loadfile", string(loc), "append-play")
}
