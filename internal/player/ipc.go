package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"mpvrelay/internal/media"
)

const (
	replyTimeout = 5 * time.Second
	maxLineSize  = 1 << 20
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command   []string `json:"command"`
	RequestID int64    `json:"request_id"`
}

// ipcMessage is any line mpv writes back: either a reply or an event.
type ipcMessage struct {
	Event     string `json:"event"`
	RequestID *int64 `json:"request_id"`
	Error     string `json:"error"`
}

// IPC is a client for mpv's newline-delimited JSON protocol. Replies are
// matched to commands by request_id; events are buffered without limit so
// the reader never has to drop one.
type IPC struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan string
	backlog []media.Event
	notify  chan struct{}

	done    chan struct{}
	readErr error
}

// NewIPC starts reading from conn.
func NewIPC(conn net.Conn) *IPC {
	c := &IPC{
		conn:    conn,
		pending: make(map[int64]chan string),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *IPC) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}

		switch {
		case msg.Event != "":
			raw := make(json.RawMessage, len(line))
			copy(raw, line)
			c.pushEvent(media.Event{Name: msg.Event, Raw: raw})
		case msg.RequestID != nil:
			c.mu.Lock()
			ch, ok := c.pending[*msg.RequestID]
			delete(c.pending, *msg.RequestID)
			c.mu.Unlock()
			if ok {
				ch <- msg.Error
			}
		}
	}

	c.mu.Lock()
	c.readErr = scanner.Err()
	c.mu.Unlock()
	close(c.done)
}

func (c *IPC) pushEvent(ev media.Event) {
	c.mu.Lock()
	c.backlog = append(c.backlog, ev)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *IPC) popEvent() (media.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.backlog) == 0 {
		return media.Event{}, false
	}
	ev := c.backlog[0]
	c.backlog[0] = media.Event{}
	c.backlog = c.backlog[1:]
	return ev, true
}

// WaitEvent returns the oldest buffered event, waiting up to timeout for one.
func (c *IPC) WaitEvent(timeout time.Duration) (media.Event, bool) {
	if ev, ok := c.popEvent(); ok {
		return ev, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-c.notify:
			if ev, ok := c.popEvent(); ok {
				return ev, true
			}
		case <-timer.C:
			return c.popEvent()
		}
	}
}

// Command sends an input command and waits for mpv's reply.
func (c *IPC) Command(args ...string) error {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	reply := make(chan string, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(ipcCommand{Command: args, RequestID: id})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(data, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("sending %v: %w", args, err)
	}

	select {
	case status := <-reply:
		if status != "success" {
			return fmt.Errorf("mpv rejected %v: %s", args, status)
		}
		return nil
	case <-c.done:
		return fmt.Errorf("sending %v: %w", args, ErrClosed)
	case <-time.After(replyTimeout):
		return fmt.Errorf("no reply from mpv to %v after %s", args, replyTimeout)
	}
}

// Err returns the error that ended the read loop, if any.
func (c *IPC) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close closes the socket.
func (c *IPC) Close() error {
	return c.conn.Close()
}
