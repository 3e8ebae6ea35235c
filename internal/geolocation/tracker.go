package geolocation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Options struct {
	// Watch keeps delivering fixes until stopped, otherwise the tracker ends after the first event.
	Watch        bool
	HighAccuracy bool
	// Timeout bounds the wait for each fix. Zero waits forever.
	Timeout time.Duration
}

// Source is an underlying position provider. Watch registers emit and returns
// a function that removes the registration. Events passed to emit must be in
// the order the fixes were obtained.
type Source interface {
	Watch(ctx context.Context, opts Options, emit func(Event)) (stop func(), err error)
}

const eventBuffer = 16

// Tracker owns at most one registration with its Source at a time.
type Tracker struct {
	source Source

	mu      sync.Mutex
	running bool
	gen     uint64
	events  chan Event
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// Start begins observing the source and returns the event stream. When the
// tracker is already running the existing stream is returned and started is
// false. The stream is closed when the tracker stops.
func (t *Tracker) Start(ctx context.Context, opts Options) (events <-chan Event, started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.events, false
	}

	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	t.running = true
	t.events = make(chan Event, eventBuffer)
	t.cancel = cancel
	t.done = make(chan struct{})

	raw := make(chan Event, eventBuffer)
	emit := func(ev Event) {
		select {
		case raw <- ev:
		case <-ctx.Done():
		}
	}
	var failed Event
	stop, err := t.source.Watch(ctx, opts, emit)
	if err != nil {
		slog.Warn("Geolocation source unavailable", "error", err)
		stop = func() {}
		failed = ErrorEvent{Reason: ReasonUnavailable, Message: err.Error()}
	}

	go t.run(ctx, t.gen, opts, raw, t.events, stop, t.done, failed)
	return t.events, true
}

func (t *Tracker) run(ctx context.Context, gen uint64, opts Options, raw <-chan Event, out chan<- Event, stop func(), done chan<- struct{}, failed Event) {
	defer close(done)
	defer func() {
		t.mu.Lock()
		if t.gen == gen {
			t.running = false
			t.cancel()
		}
		t.mu.Unlock()
	}()
	defer close(out)
	defer stop()

	forward := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if failed != nil {
		forward(failed)
		return
	}

	var timer *time.Timer
	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer = time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			if !forward(ErrorEvent{Reason: ReasonTimeout, Message: "no position within " + opts.Timeout.String()}) || !opts.Watch {
				return
			}
			timer.Reset(opts.Timeout)
		case ev := <-raw:
			if !forward(ev) || !opts.Watch {
				return
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(opts.Timeout)
			}
		}
	}
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Stop tears down the registration and waits for the stream to close. Safe to call when not running.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
}
