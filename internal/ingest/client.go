package ingest

import (
	"context"
	"fmt"
	"net"
	"time"

	"mpvrelay/internal/media"
)

const dialTimeout = 5 * time.Second

// Send delivers loc to a relay listening on addr. The write side is closed
// to mark the end of the message; the server never replies.
func Send(ctx context.Context, addr string, loc media.Locator) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(loc)); err != nil {
		return fmt.Errorf("writing locator: %w", err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return fmt.Errorf("closing write side: %w", err)
		}
	}

	return nil
}
