// Package control runs the foreground loop that feeds received locators to
// mpv while draining its event stream.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mpvrelay/internal/media"
	"mpvrelay/internal/player"
	"mpvrelay/internal/queue"
)

// DefaultPollTimeout bounds how long one iteration waits for an event.
const DefaultPollTimeout = time.Second

// Receiver is the read side of the command channel.
type Receiver interface {
	TryRecv() (queue.Item[media.Locator], bool)
}

// Recorder stores submitted locators.
type Recorder interface {
	Record(ctx context.Context, rec media.PlayRecord) error
}

// Stats receives loop counters.
type Stats interface {
	IncSubmissions()
	IncSubmitErrors()
	IncEvents(name string)
}

// Loop owns the engine handle. Nothing else may submit commands to it.
type Loop struct {
	engine      player.Engine
	commands    Receiver
	pollTimeout time.Duration
	log         *slog.Logger
	recorder    Recorder
	writer      *recordWriter
	stats       Stats
}

// Option configures a Loop.
type Option func(*Loop)

// WithPollTimeout sets the maximum wait for an event per iteration.
func WithPollTimeout(d time.Duration) Option {
	return func(l *Loop) { l.pollTimeout = d }
}

// WithLogger sets the logger events are written to.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithRecorder stores every submitted locator in r. Writes happen on a
// separate goroutine; call Close to flush them.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithStats reports counters to s.
func WithStats(s Stats) Option {
	return func(l *Loop) { l.stats = s }
}

// New creates a loop reading commands from q and submitting them to engine.
func New(engine player.Engine, q Receiver, opts ...Option) *Loop {
	l := &Loop{
		engine:      engine,
		commands:    q,
		pollTimeout: DefaultPollTimeout,
		log:         slog.New(slog.DiscardHandler),
		stats:       nopStats{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.recorder != nil {
		l.writer = newRecordWriter(l.recorder, l.log)
	}
	return l
}

// Close flushes pending history writes. The engine is left open.
func (l *Loop) Close() {
	if l.writer != nil {
		l.writer.close()
	}
}

// Run iterates until a submission fails or ctx is done. ctx is only
// checked between iterations.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Step(); err != nil {
			return err
		}
	}
}

// Step runs one iteration: a bounded wait for an event, then a
// non-blocking check for one pending locator.
func (l *Loop) Step() error {
	if ev, ok := l.engine.WaitEvent(l.pollTimeout); ok {
		l.observe(ev)
	}

	it, ok := l.commands.TryRecv()
	if !ok {
		return nil
	}

	if err := player.LoadFile(l.engine, it.Value); err != nil {
		l.stats.IncSubmitErrors()
		return fmt.Errorf("submitting %q: %w", it.Value, err)
	}
	l.stats.IncSubmissions()

	l.log.Info("locator submitted",
		slog.String("locator", string(it.Value)),
		slog.String("remote", it.Remote),
	)

	if l.writer != nil {
		l.writer.enqueue(media.PlayRecord{Locator: it.Value, Remote: it.Remote, SubmittedAt: time.Now()})
	}

	return nil
}

func (l *Loop) observe(ev media.Event) {
	l.stats.IncEvents(ev.Name)
	l.log.Info("event",
		slog.String("event", ev.Name),
		slog.String("data", string(ev.Raw)),
	)
}

type nopStats struct{}

func (nopStats) IncSubmissions() {}
func (nopStats) IncSubmitErrors() {}
func (nopStats) IncEvents(string) {}
