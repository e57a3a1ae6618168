package control

import (
	"context"
	"log/slog"
	"sync"

	"mpvrelay/internal/media"
)

// recordWriter hands submitted locators to a Recorder on its own goroutine.
// The loop only appends to an unbounded backlog, so a slow disk never
// delays event observation or command intake.
type recordWriter struct {
	rec Recorder
	log *slog.Logger

	mu      sync.Mutex
	backlog []media.PlayRecord
	notify  chan struct{}

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRecordWriter(rec Recorder, log *slog.Logger) *recordWriter {
	w := &recordWriter{
		rec:    rec,
		log:    log,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *recordWriter) enqueue(r media.PlayRecord) {
	w.mu.Lock()
	w.backlog = append(w.backlog, r)
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *recordWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.notify:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *recordWriter) drain() {
	for {
		w.mu.Lock()
		if len(w.backlog) == 0 {
			w.mu.Unlock()
			return
		}
		r := w.backlog[0]
		w.backlog[0] = media.PlayRecord{}
		w.backlog = w.backlog[1:]
		w.mu.Unlock()

		if err := w.rec.Record(context.Background(), r); err != nil {
			w.log.Warn("recording history",
				slog.String("locator", string(r.Locator)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// close writes out whatever is still queued and stops the goroutine.
func (w *recordWriter) close() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
