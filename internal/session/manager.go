package session

import (
	"sync"
	"time"
)

// Manager owns the live sessions of in-progress attempts, keyed by attempt
// ID. Sessions exist only in memory for the lifetime of the sitting;
// highlights, notes and flags are gone once the session closes.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[uint]*Session)}
}

// Open creates and registers a session for an attempt. An existing session
// for the same attempt is returned instead, so a reconnecting client
// resumes rather than resets its state.
func (m *Manager) Open(attemptID uint, partCount int, limit time.Duration, onExpire func()) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[attemptID]; ok {
		return existing
	}
	s := New(attemptID, partCount, limit, onExpire)
	m.sessions[attemptID] = s
	return s
}

// Get returns the live session for an attempt, if any.
func (m *Manager) Get(attemptID uint) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[attemptID]
	return s, ok
}

// Close stops an attempt's timer and removes its session.
func (m *Manager) Close(attemptID uint) {
	m.mu.Lock()
	s, ok := m.sessions[attemptID]
	if ok {
		delete(m.sessions, attemptID)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Shutdown closes every live session; used on server shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uint]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
