package session

import (
	"sync"
	"time"
)

// Timer counts a sitting down from its time limit, ticking once per second.
// When the countdown reaches zero it invokes onExpire exactly once and
// stops ticking. Expiry is safety-critical for exam integrity: nothing on
// the tick path may swallow it. The at-most-once guard for the grading path
// itself lives in the submit handler, not here; the timer always fires.
type Timer struct {
	mu        sync.Mutex
	remaining int
	expired   bool

	onExpire func()

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// StartTimer starts a countdown over limit that calls onExpire when it
// reaches zero. The caller must Stop the timer when the sitting ends or is
// abandoned, or the tick goroutine leaks.
func StartTimer(limit time.Duration, onExpire func()) *Timer {
	t := &Timer{
		remaining: int(limit / time.Second),
		onExpire:  onExpire,
		ticker:    time.NewTicker(time.Second),
		done:      make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Timer) run() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// tick advances the countdown by one second and reports whether the timer
// has finished.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return true
	}
	t.remaining--
	if t.remaining > 0 {
		t.mu.Unlock()
		return false
	}
	t.remaining = 0
	t.expired = true
	onExpire := t.onExpire
	t.mu.Unlock()

	t.ticker.Stop()
	if onExpire != nil {
		onExpire()
	}
	return true
}

// Remaining returns the seconds left on the countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Expired reports whether the countdown has reached zero.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Stop releases the tick source. Safe to call more than once and after
// expiry; stopping never fires onExpire.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		t.ticker.Stop()
	})
}
