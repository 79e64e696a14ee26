package game

import (
	"sync"
	"time"
)

// TimerState is the lifecycle state of an AttemptTimer.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerArmed
	TimerFired
	TimerCancelled
)

// AttemptTimer is the per-task countdown. It fires at most once per
// arm cycle, is cancellable from any state, and is rearmed on every
// new task fetch. Cancellation-on-supersede is enforced here in one
// place instead of ad hoc interval handles scattered across callers.
type AttemptTimer struct {
	mu         sync.Mutex
	state      TimerState
	gen        uint64
	remaining  int
	resolution time.Duration
	onTimeout  func()
	onTick     func(remainingSec int)
}

// TimerOption customizes an AttemptTimer.
type TimerOption func(*AttemptTimer)

// WithResolution overrides the 1s tick resolution (tests).
func WithResolution(d time.Duration) TimerOption {
	return func(t *AttemptTimer) { t.resolution = d }
}

// WithTick registers a per-second callback with the remaining seconds,
// for countdown display.
func WithTick(fn func(remainingSec int)) TimerOption {
	return func(t *AttemptTimer) { t.onTick = fn }
}

// NewAttemptTimer creates an idle timer. onTimeout runs outside the
// timer's lock when an armed countdown elapses.
func NewAttemptTimer(onTimeout func(), opts ...TimerOption) *AttemptTimer {
	t := &AttemptTimer{
		state:      TimerIdle,
		resolution: time.Second,
		onTimeout:  onTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm starts a countdown of the given seconds, superseding any
// previous cycle. Zero or negative durations fire immediately rather
// than hanging; callers with no-limit tasks simply never arm.
func (t *AttemptTimer) Arm(seconds int) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.state = TimerArmed
	t.remaining = seconds
	t.mu.Unlock()

	if seconds <= 0 {
		t.fire(gen)
		return
	}
	go t.run(gen, seconds)
}

// Cancel stops an armed countdown. Safe to call from any state; after
// it returns, the cancelled cycle can no longer fire.
func (t *AttemptTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TimerArmed {
		return
	}
	t.state = TimerCancelled
	t.gen++ // invalidates the running goroutine
}

// State returns the current lifecycle state.
func (t *AttemptTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left in the current cycle.
func (t *AttemptTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *AttemptTimer) run(gen uint64, seconds int) {
	ticker := time.NewTicker(t.resolution)
	defer ticker.Stop()

	remaining := seconds
	for range ticker.C {
		t.mu.Lock()
		if t.gen != gen || t.state != TimerArmed {
			t.mu.Unlock()
			return
		}
		remaining--
		t.remaining = remaining
		tick := t.onTick
		t.mu.Unlock()

		if tick != nil {
			tick(remaining)
		}
		if remaining <= 0 {
			t.fire(gen)
			return
		}
	}
}

// fire transitions Armed → Fired exactly once per arm cycle. A stale
// generation (cancelled or rearmed) is dropped silently.
func (t *AttemptTimer) fire(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || t.state != TimerArmed {
		t.mu.Unlock()
		return
	}
	t.state = TimerFired
	cb := t.onTimeout
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
