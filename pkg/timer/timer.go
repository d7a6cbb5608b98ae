// Package timer implements a one-shot alarm on a dedicated goroutine: Set
// arms it, Unset disarms it, UpdateRelative nudges an armed target time
// without losing it. Not used by the scheduling core itself (it has no
// timers of its own) — this is a small library for an external caller that
// wants to arm periodic re-scheduling ticks.
package timer

import (
	"sync"
	"time"
)

// Timer is a one-shot alarm. The zero value is not usable; construct one
// with New. Set/Unset/UpdateRelative/Close are all safe to call from any
// goroutine, and coordinate with the timer's own goroutine so that exactly
// zero or one callback fires per arming.
type Timer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	wake    chan struct{}
	stopped chan struct{}

	target  time.Time
	fn      func()
	set     bool
	waiting bool
	stop    bool
}

// New starts the timer's background goroutine and returns a disarmed
// Timer. Call Close when done with it.
func New() *Timer {
	t := &Timer{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

func (t *Timer) poke() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Set arms the timer to call fn after d, replacing any previously armed
// callback.
func (t *Timer) Set(d time.Duration, fn func()) {
	t.mu.Lock()
	t.target = time.Now().Add(d)
	t.fn = fn
	t.set = true
	t.mu.Unlock()

	t.cond.Signal()
	t.poke()
}

// Unset disarms the timer. A callback already in flight still runs to
// completion; one not yet started will not fire.
func (t *Timer) Unset() {
	t.mu.Lock()
	t.fn = nil
	t.set = false
	waiting := t.waiting
	t.mu.Unlock()

	if waiting {
		t.poke()
	}
}

// UpdateRelative shifts the currently armed target time by d, without
// touching the callback. It has no effect if the timer is not armed.
func (t *Timer) UpdateRelative(d time.Duration) {
	t.mu.Lock()
	if !t.set && !t.waiting {
		t.mu.Unlock()
		return
	}
	t.target = t.target.Add(d)
	t.set = true
	t.mu.Unlock()

	t.cond.Signal()
	t.poke()
}

// Close stops the background goroutine and waits for it to exit. The timer
// must not be used afterwards.
func (t *Timer) Close() {
	t.mu.Lock()
	t.stop = true
	t.mu.Unlock()

	t.cond.Signal()
	t.poke()
	<-t.stopped
}

func (t *Timer) run() {
	defer close(t.stopped)

	for {
		t.mu.Lock()
		for !t.set && !t.stop {
			t.cond.Wait()
		}
		if t.stop {
			t.mu.Unlock()
			return
		}
		t.waiting = true
		target := t.target
		t.mu.Unlock()

		wait := time.NewTimer(time.Until(target))
		var aborted bool
		select {
		case <-wait.C:
		case <-t.wake:
			if !wait.Stop() {
				<-wait.C
			}
			aborted = true
		}

		t.mu.Lock()
		t.waiting = false
		stop := t.stop
		// A wake-up only means the arming changed (re-set, shifted, unset or
		// closed); the loop re-reads it. The callback fires only when the wait
		// ran out and the timer is still armed and due.
		var fn func()
		if !aborted && t.set && !t.target.After(time.Now()) {
			t.set = false
			fn = t.fn
		}
		t.mu.Unlock()

		if stop {
			return
		}
		if fn != nil {
			fn()
		}
	}
}
