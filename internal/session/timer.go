package session

import (
	"sync"
	"time"
)

// TimerOptions configures a countdown.
type TimerOptions struct {
	Tick     time.Duration // length of one countdown step, default 1s
	OnTick   func(remaining int)
	OnExpire func()
}

// Timer counts down whole steps and fires OnExpire once at zero.
// Callbacks run on the timer goroutine and may call Stop.
type Timer struct {
	mu        sync.Mutex
	remaining int
	tick      time.Duration
	onTick    func(int)
	onExpire  func()
	started   bool
	stopped   bool
	stopCh    chan struct{}
	done      chan struct{}
}

// NewTimer creates a stopped timer holding durationSeconds steps.
func NewTimer(durationSeconds int, opts TimerOptions) *Timer {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return &Timer{
		remaining: durationSeconds,
		tick:      opts.Tick,
		onTick:    opts.OnTick,
		onExpire:  opts.OnExpire,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the countdown. Calling Start twice, or after Stop, does nothing.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return
	}
	t.started = true
	go t.run()
}

func (t *Timer) run() {
	defer close(t.done)

	if t.drained() {
		if t.onExpire != nil {
			t.onExpire()
		}
		return
	}

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			remaining, expired, ok := t.step()
			if !ok {
				return
			}
			if t.onTick != nil {
				t.onTick(remaining)
			}
			if expired {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}

// drained stops a timer that starts with nothing left.
func (t *Timer) drained() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.remaining > 0 {
		return false
	}
	t.stopped = true
	close(t.stopCh)
	return true
}

// step decrements under the lock; ok is false once stopped.
func (t *Timer) step() (remaining int, expired bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return t.remaining, false, false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.stopped = true
		close(t.stopCh)
		return 0, true, true
	}
	return t.remaining, false, true
}

// Stop cancels the countdown. It is idempotent and does not wait for a
// callback already in progress.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}

// Done is closed when the timer goroutine has exited. It never closes for a
// timer that was not started.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Remaining returns the steps left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.stopped
}
