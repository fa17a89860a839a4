package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_BeginSubmitOnce(t *testing.T) {
	s := New(1, 3, time.Minute, nil)
	defer s.Close()

	assert.True(t, s.BeginSubmit())
	assert.False(t, s.BeginSubmit())
}

func TestSession_BeginSubmitConcurrent(t *testing.T) {
	s := New(1, 3, time.Minute, nil)
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginSubmit() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestSession_Remaining(t *testing.T) {
	s := New(1, 1, 90*time.Second, nil)
	defer s.Close()

	assert.LessOrEqual(t, s.Remaining(), 90)
	assert.Greater(t, s.Remaining(), 85)
	assert.GreaterOrEqual(t, s.TimeSpent(), 0)
}

func TestManager_OpenResumes(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	first := m.Open(42, 3, time.Minute, nil)
	first.State.SetAnswer(1, "tides")

	second := m.Open(42, 3, time.Minute, nil)
	require.Same(t, first, second)
	assert.Equal(t, "tides", second.State.Answers()[1])
}

func TestManager_Get(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	_, ok := m.Get(7)
	assert.False(t, ok)

	opened := m.Open(7, 1, time.Minute, nil)
	got, ok := m.Get(7)
	require.True(t, ok)
	assert.Same(t, opened, got)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	m.Open(7, 1, time.Minute, nil)
	m.Close(7)

	_, ok := m.Get(7)
	assert.False(t, ok)

	// closing an unknown attempt is a no-op
	m.Close(7)
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager()
	m.Open(1, 1, time.Minute, nil)
	m.Open(2, 1, time.Minute, nil)

	m.Shutdown()

	_, ok := m.Get(1)
	assert.False(t, ok)
	_, ok = m.Get(2)
	assert.False(t, ok)

	// a fresh session can still be opened after shutdown
	m.Open(3, 1, time.Minute, nil)
	_, ok = m.Get(3)
	assert.True(t, ok)
	m.Shutdown()
}
