// Package media defines shared types for the mpvrelay application.
package media

import (
	"encoding/json"
	"fmt"
	"time"
)

// Locator identifies a playable resource (URL or file path).
// It is never validated here; mpv decides what it can play.
type Locator string

// Event is an opaque notification produced by the playback engine.
type Event struct {
	Name string          // mpv event name, e.g. "start-file", "property-change"
	Raw  json.RawMessage // Full event payload as received
}

func (e Event) String() string {
	if len(e.Raw) == 0 {
		return e.Name
	}
	return fmt.Sprintf("%s %s", e.Name, e.Raw)
}

// PlayRecord represents a locator that was submitted to the engine.
type PlayRecord struct {
	ID          int64     // Row ID in the history store
	Locator     Locator   // What was submitted
	Remote      string    // Peer address the locator arrived from
	SubmittedAt time.Time // When the engine accepted it
}
