package session

import (
	"sync/atomic"
	"time"

	"github.com/ieltsprep/practice-service/internal/highlight"
)

// Session bundles everything one live sitting owns: answer state,
// highlights, and the countdown timer, plus the submit-in-flight guard.
type Session struct {
	AttemptID  uint
	State      *State
	Highlights *highlight.Store

	timer      *Timer
	submitting atomic.Bool
	startedAt  time.Time
}

// New creates a session for an attempt over partCount parts and starts its
// countdown. onExpire runs when the limit elapses; the attempt service
// routes it into the same guarded submit path a manual submit uses.
func New(attemptID uint, partCount int, limit time.Duration, onExpire func()) *Session {
	s := &Session{
		AttemptID:  attemptID,
		State:      NewState(partCount),
		Highlights: highlight.NewStore(),
		startedAt:  time.Now(),
	}
	s.timer = StartTimer(limit, onExpire)
	return s
}

// BeginSubmit claims the submit path. It returns true exactly once per
// session, so a manual submit racing the expiry tick results in a single
// grading invocation; the loser sees false and backs off.
func (s *Session) BeginSubmit() bool {
	return s.submitting.CompareAndSwap(false, true)
}

// TimeSpent returns the wall-clock seconds since the sitting started.
func (s *Session) TimeSpent() int {
	return int(time.Since(s.startedAt) / time.Second)
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	return s.timer.Remaining()
}

// Close stops the timer. It must run when the sitting ends for any reason,
// or the tick goroutine leaks.
func (s *Session) Close() {
	s.timer.Stop()
}
