// Package ingest accepts plaintext TCP connections that each carry a single
// locator. A connection's message ends when the peer closes it; there is no
// delimiter, length prefix or response.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"unicode/utf8"

	"mpvrelay/internal/media"
)

// chunkSize is the read buffer size. Each chunk is decoded on its own.
const chunkSize = 1024

// Sender is the write side of the command channel.
type Sender interface {
	Send(loc media.Locator, remote string) error
}

// Listener serves one connection at a time. A slow or silent peer blocks
// every connection queued behind it.
type Listener struct {
	ln       net.Listener
	log      *slog.Logger
	onAccept func(remote string)
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the logger used for per-connection diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// WithAcceptHook registers a callback run for every accepted connection.
func WithAcceptHook(fn func(remote string)) Option {
	return func(l *Listener) { l.onAccept = fn }
}

// Listen binds addr (e.g. "0.0.0.0:8000").
func Listen(addr string, opts ...Option) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", addr, err)
	}

	l := &Listener{ln: ln, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops the listener. A blocked Serve returns with an accept error.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections forever, forwarding each connection's text to q.
// It returns only when accepting fails or q no longer has a receiver.
func (l *Listener) Serve(q Sender) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return fmt.Errorf("accepting connection: %w", err)
		}

		remote := conn.RemoteAddr().String()
		if l.onAccept != nil {
			l.onAccept(remote)
		}

		loc := ReadLocator(conn)
		conn.Close()

		l.log.Debug("locator received",
			slog.String("remote", remote),
			slog.Int("bytes", len(loc)),
		)

		if err := q.Send(loc, remote); err != nil {
			return fmt.Errorf("forwarding locator from %s: %w", remote, err)
		}
	}
}

// ReadLocator reads r until EOF, a zero-length read or any read error, and
// returns the concatenation of every chunk that decoded as valid UTF-8.
// Invalid chunks are dropped; a read error keeps what was read so far.
func ReadLocator(r io.Reader) media.Locator {
	var sb strings.Builder
	buf := make([]byte, chunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 && utf8.Valid(buf[:n]) {
			sb.Write(buf[:n])
		}
		if err != nil || n == 0 {
			break
		}
	}

	return media.Locator(sb.String())
}
