package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresOncePerArmCycle(t *testing.T) {
	var fired int64
	timer := NewAttemptTimer(func() { atomic.AddInt64(&fired, 1) }, WithResolution(2*time.Millisecond))

	timer.Arm(3)

	assert.Eventually(t, func() bool {
		return timer.State() == TimerFired
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond) // no second fire may follow
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired))
}

func TestTimerNeverFiresAfterCancel(t *testing.T) {
	var fired int64
	timer := NewAttemptTimer(func() { atomic.AddInt64(&fired, 1) }, WithResolution(5*time.Millisecond))

	timer.Arm(1)
	timer.Cancel()

	assert.Equal(t, TimerCancelled, timer.State())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fired))
}

func TestTimerCancelSafeFromAnyState(t *testing.T) {
	timer := NewAttemptTimer(nil)

	timer.Cancel() // Idle: no-op
	assert.Equal(t, TimerIdle, timer.State())

	timer.Arm(0) // fires immediately
	assert.Equal(t, TimerFired, timer.State())
	timer.Cancel() // Fired: no-op
	assert.Equal(t, TimerFired, timer.State())
}

func TestTimerZeroDurationFiresImmediately(t *testing.T) {
	var fired int64
	timer := NewAttemptTimer(func() { atomic.AddInt64(&fired, 1) })

	timer.Arm(0)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired), "zero duration must fire, not hang")

	timer.Arm(-5)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fired))
}

func TestTimerRearmSupersedesOldCycle(t *testing.T) {
	var fired int64
	timer := NewAttemptTimer(func() { atomic.AddInt64(&fired, 1) }, WithResolution(2*time.Millisecond))

	timer.Arm(1000) // would fire far in the future
	timer.Arm(2)    // supersedes

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&fired) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired), "the superseded cycle must not fire")
}

func TestTimerTicksCountDown(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})

	timer := NewAttemptTimer(func() { close(done) },
		WithResolution(2*time.Millisecond),
		WithTick(func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		}),
	)

	timer.Arm(3)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1, 0}, ticks)
}
