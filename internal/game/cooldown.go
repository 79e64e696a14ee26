package game

import (
	"fmt"
	"sync"
	"time"
)

// CooldownTracker live-updates a human-readable countdown until a
// level may be replayed. Stop must be called when the owning view is
// torn down; a ticker leaking past navigation is a defect.
type CooldownTracker struct {
	availableAt time.Time
	now         func() time.Time
	resolution  time.Duration
	onTick      func(formatted string)
	onExpired   func()

	mu      sync.Mutex
	stopped chan struct{}
	running bool
}

// CooldownOption customizes a CooldownTracker.
type CooldownOption func(*CooldownTracker)

// WithCooldownClock injects a deterministic clock for tests.
func WithCooldownClock(now func() time.Time) CooldownOption {
	return func(c *CooldownTracker) { c.now = now }
}

// WithCooldownResolution overrides the 1s update resolution (tests).
func WithCooldownResolution(d time.Duration) CooldownOption {
	return func(c *CooldownTracker) { c.resolution = d }
}

// NewCooldownTracker creates a tracker for the given availability time.
// onTick receives the formatted remaining time every second while the
// cooldown is active; onExpired fires once when it reaches zero.
// Either callback may be nil.
func NewCooldownTracker(availableAt time.Time, onTick func(string), onExpired func(), opts ...CooldownOption) *CooldownTracker {
	c := &CooldownTracker{
		availableAt: availableAt,
		now:         time.Now,
		resolution:  time.Second,
		onTick:      onTick,
		onExpired:   onExpired,
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active reports whether the cooldown still holds.
func (c *CooldownTracker) Active() bool {
	return c.Remaining() > 0
}

// Remaining returns the time left until replay is available; zero if
// the availability time is already in the past.
func (c *CooldownTracker) Remaining() time.Duration {
	d := c.availableAt.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

// Start begins ticking. A tracker that is already inactive fires
// onExpired immediately and never starts a ticker. Start is a no-op on
// a stopped or already running tracker.
func (c *CooldownTracker) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.stopped:
		c.mu.Unlock()
		return
	default:
	}
	c.running = true
	c.mu.Unlock()

	if !c.Active() {
		if c.onExpired != nil {
			c.onExpired()
		}
		return
	}

	if c.onTick != nil {
		c.onTick(FormatCountdown(c.Remaining()))
	}
	go c.loop()
}

// Stop halts updates and releases the ticker. Idempotent.
func (c *CooldownTracker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.stopped:
	default:
		close(c.stopped)
	}
}

func (c *CooldownTracker) loop() {
	ticker := time.NewTicker(c.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopped:
			return
		case <-ticker.C:
			remaining := c.Remaining()
			if remaining <= 0 {
				if c.onExpired != nil {
					c.onExpired()
				}
				return
			}
			if c.onTick != nil {
				c.onTick(FormatCountdown(remaining))
			}
		}
	}
}

// FormatCountdown renders a duration as H:MM:SS above one hour and
// M:SS below it: 90s → "1:30", 3661s → "1:01:01".
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int((d + time.Second - 1) / time.Second) // round up partial seconds
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// CooldownMessage builds the user-facing message for a replay rejected
// with a server-provided retry time.
func CooldownMessage(retryAfter time.Time, now time.Time) string {
	return fmt.Sprintf("Level can be replayed in %s", FormatCountdown(retryAfter.Sub(now)))
}
