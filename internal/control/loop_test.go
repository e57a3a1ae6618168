package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"mpvrelay/internal/media"
	"mpvrelay/internal/queue"
)

// fakeEngine records commands and serves events pushed by the test.
type fakeEngine struct {
	events    chan media.Event
	submitted chan []string
	failWith  error

	mu       sync.Mutex
	commands [][]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		events:    make(chan media.Event, 16),
		submitted: make(chan []string, 64),
	}
}

func (f *fakeEngine) Command(args ...string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	f.commands = append(f.commands, args)
	f.mu.Unlock()
	f.submitted <- args
	return nil
}

func (f *fakeEngine) WaitEvent(timeout time.Duration) (media.Event, bool) {
	select {
	case ev := <-f.events:
		return ev, true
	case <-time.After(timeout):
		return media.Event{}, false
	}
}

func (f *fakeEngine) Close() error { return nil }

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []media.PlayRecord
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, rec media.PlayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func startLoop(t *testing.T, l *Loop) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("loop did not stop after cancel")
		}
	})
	return errCh
}

func waitCommand(t *testing.T, f *fakeEngine) []string {
	t.Helper()
	select {
	case args := <-f.submitted:
		return args
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a submission")
		return nil
	}
}

func TestSubmitsLoadfileAppendPlay(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	startLoop(t, New(eng, q, WithPollTimeout(20*time.Millisecond)))

	q.Send("http://example.com/video.mp4", "127.0.0.1:5000")

	got := waitCommand(t, eng)
	want := []string{"loadfile", "http://example.com/video.mp4", "append-play"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("submitted %v, want %v", got, want)
	}
}

func TestSubmitsInArrivalOrder(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()

	const n = 10
	for i := 0; i < n; i++ {
		q.Send(media.Locator(fmt.Sprintf("%d.mp4", i)), "")
	}
	startLoop(t, New(eng, q, WithPollTimeout(time.Millisecond)))

	for i := 0; i < n; i++ {
		got := waitCommand(t, eng)
		if want := fmt.Sprintf("%d.mp4", i); got[1] != want {
			t.Fatalf("submission %d = %q, want %q", i, got[1], want)
		}
	}
}

func TestSubmitsEmptyLocator(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	q.Send("", "")
	startLoop(t, New(eng, q, WithPollTimeout(time.Millisecond)))

	if got := waitCommand(t, eng); got[1] != "" {
		t.Errorf("locator = %q, want empty", got[1])
	}
}

func TestEventsLoggedWithoutCommands(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	var logs syncBuffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	startLoop(t, New(eng, q, WithPollTimeout(20*time.Millisecond), WithLogger(log)))
	eng.events <- media.Event{Name: "idle", Raw: []byte(`{"event":"idle"}`)}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(logs.String(), "event=idle") {
		if time.Now().After(deadline) {
			t.Fatalf("event was not logged; log = %q", logs.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventsObservedInOrder(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	var logs syncBuffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	l := New(eng, q, WithPollTimeout(10*time.Millisecond), WithLogger(log))

	for _, name := range []string{"start-file", "file-loaded", "end-file"} {
		eng.events <- media.Event{Name: name}
	}
	for i := 0; i < 3; i++ {
		if err := l.Step(); err != nil {
			t.Fatal(err)
		}
	}

	out := logs.String()
	a := strings.Index(out, "event=start-file")
	b := strings.Index(out, "event=file-loaded")
	c := strings.Index(out, "event=end-file")
	if a < 0 || b < a || c < b {
		t.Errorf("events logged out of order: %q", out)
	}
}

func TestSubmitFailureIsFatal(t *testing.T) {
	eng := newFakeEngine()
	eng.failWith = errors.New("mpv gone")
	q := queue.New[media.Locator]()
	q.Send("a.mp4", "")

	err := New(eng, q, WithPollTimeout(time.Millisecond)).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "mpv gone") {
		t.Errorf("Run() error = %v, want submission failure", err)
	}
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	rec := &fakeRecorder{err: errors.New("disk full")}
	l := New(eng, q, WithPollTimeout(time.Millisecond), WithRecorder(rec))

	q.Send("a.mp4", "")
	if err := l.Step(); err != nil {
		t.Fatalf("Step() error = %v, recorder failures must not stop the loop", err)
	}
	l.Close()
}

// slowRecorder blocks every write until delay has passed.
type slowRecorder struct {
	delay time.Duration
	fakeRecorder
}

func (r *slowRecorder) Record(ctx context.Context, rec media.PlayRecord) error {
	time.Sleep(r.delay)
	return r.fakeRecorder.Record(ctx, rec)
}

func TestSlowRecorderDoesNotStallStep(t *testing.T) {
	const timeout = 50 * time.Millisecond
	const slack = 100 * time.Millisecond

	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	rec := &slowRecorder{delay: 500 * time.Millisecond}
	l := New(eng, q, WithPollTimeout(timeout), WithRecorder(rec))

	q.Send("a.mp4", "")
	q.Send("b.mp4", "")
	for i := 0; i < 2; i++ {
		start := time.Now()
		if err := l.Step(); err != nil {
			t.Fatal(err)
		}
		if took := time.Since(start); took > timeout+slack {
			t.Errorf("step %d took %s with a slow recorder, want <= %s", i, took, timeout+slack)
		}
	}

	l.Close()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 2 || rec.records[0].Locator != "a.mp4" || rec.records[1].Locator != "b.mp4" {
		t.Errorf("records after Close = %+v, want a.mp4 then b.mp4", rec.records)
	}
}

func TestRecorderReceivesSubmission(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	rec := &fakeRecorder{}
	l := New(eng, q, WithPollTimeout(time.Millisecond), WithRecorder(rec))

	q.Send("b.mp4", "10.1.1.1:3333")
	if err := l.Step(); err != nil {
		t.Fatal(err)
	}
	l.Close()

	if len(rec.records) != 1 || rec.records[0].Locator != "b.mp4" || rec.records[0].Remote != "10.1.1.1:3333" {
		t.Errorf("records = %+v", rec.records)
	}
}

func TestOneSubmissionPerStep(t *testing.T) {
	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	q.Send("a.mp4", "")
	q.Send("b.mp4", "")
	l := New(eng, q, WithPollTimeout(time.Millisecond))

	if err := l.Step(); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 1 {
		t.Errorf("pending after one step = %d, want 1", q.Len())
	}
}

func TestBoundedLatency(t *testing.T) {
	const timeout = 100 * time.Millisecond
	const slack = 100 * time.Millisecond

	eng := newFakeEngine()
	q := queue.New[media.Locator]()
	startLoop(t, New(eng, q, WithPollTimeout(timeout)))

	for trial := 0; trial < 5; trial++ {
		// Land at varying points within a poll interval.
		time.Sleep(time.Duration(trial) * 17 * time.Millisecond)

		sent := time.Now()
		q.Send(media.Locator(fmt.Sprintf("trial-%d", trial)), "")
		waitCommand(t, eng)

		if latency := time.Since(sent); latency > timeout+slack {
			t.Errorf("trial %d: submission took %s, want <= %s", trial, latency, timeout+slack)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(newFakeEngine(), queue.New[media.Locator]()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
