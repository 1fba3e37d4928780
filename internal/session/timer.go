package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimerStarted is returned when Start is called on a timer that already ran.
var ErrTimerStarted = errors.New("timer already started")

// TickSource produces ticks every interval until stop is called.
type TickSource func(interval time.Duration) (ticks <-chan time.Time, stop func())

// RealTicks is the TickSource backed by time.Ticker.
func RealTicks(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Timer counts down once per second. onExpire fires exactly once: with
// exhausted=true when the countdown reaches zero, or exhausted=false when Stop
// ends it first. Once the countdown goroutine runs, every callback is delivered
// from it, so no tick is delivered after onExpire.
type Timer struct {
	source    TickSource
	remaining atomic.Int64
	started   atomic.Bool
	running   atomic.Bool

	done     chan struct{}
	stopOnce sync.Once
	fired    atomic.Bool
	onExpire func(exhausted bool)
}

// NewTimer creates a stopped timer. A nil source uses RealTicks.
func NewTimer(source TickSource) *Timer {
	if source == nil {
		source = RealTicks
	}
	return &Timer{
		source: source,
		done:   make(chan struct{}),
	}
}

// Start begins the countdown from totalSeconds.
func (t *Timer) Start(totalSeconds int, onTick func(remaining int), onExpire func(exhausted bool)) error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrTimerStarted
	}

	t.remaining.Store(int64(totalSeconds))
	t.onExpire = onExpire

	if totalSeconds <= 0 {
		t.close()
		t.fire(true)
		return nil
	}

	ticks, stopTicks := t.source(time.Second)
	t.running.Store(true)
	go t.run(ticks, stopTicks, onTick)
	return nil
}

func (t *Timer) run(ticks <-chan time.Time, stopTicks func(), onTick func(int)) {
	defer stopTicks()

	for {
		select {
		case <-t.done:
			t.fire(false)
			return
		case <-ticks:
			select {
			case <-t.done:
				t.fire(false)
				return
			default:
			}

			rem := t.remaining.Add(-1)
			if rem < 0 {
				t.remaining.Store(0)
				rem = 0
			}
			if onTick != nil {
				onTick(int(rem))
			}
			if rem == 0 {
				t.close()
				t.fire(true)
				return
			}
		}
	}
}

// Stop halts the countdown. It is safe to call more than once and from inside
// the timer's own callbacks. While the countdown goroutine runs, onExpire(false)
// is delivered from it once any in-flight tick returns.
func (t *Timer) Stop() {
	t.close()
	if !t.running.Load() {
		t.fire(false)
	}
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	return int(t.remaining.Load())
}

func (t *Timer) close() {
	t.stopOnce.Do(func() { close(t.done) })
}

// fire runs onExpire for whichever caller wins the CAS.
func (t *Timer) fire(exhausted bool) {
	if t.fired.CompareAndSwap(false, true) && t.onExpire != nil {
		t.onExpire(exhausted)
	}
}
