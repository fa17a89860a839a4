package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Tests drive tick() directly so they never wait on wall-clock seconds.

func TestTimer_Countdown(t *testing.T) {
	var fired atomic.Int32
	tm := StartTimer(3*time.Second, func() { fired.Add(1) })
	defer tm.Stop()

	assert.Equal(t, 3, tm.Remaining())

	assert.False(t, tm.tick())
	assert.Equal(t, 2, tm.Remaining())
	assert.False(t, tm.Expired())
	assert.Equal(t, int32(0), fired.Load())

	assert.False(t, tm.tick())
	assert.True(t, tm.tick())
	assert.Equal(t, 0, tm.Remaining())
	assert.True(t, tm.Expired())
	assert.Equal(t, int32(1), fired.Load())
}

func TestTimer_ExpiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	tm := StartTimer(time.Second, func() { fired.Add(1) })
	defer tm.Stop()

	assert.True(t, tm.tick())
	// ticks after expiry short-circuit without firing again
	assert.True(t, tm.tick())
	assert.True(t, tm.tick())
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, tm.Remaining())
}

func TestTimer_StopNeverFires(t *testing.T) {
	var fired atomic.Int32
	tm := StartTimer(2*time.Second, func() { fired.Add(1) })

	tm.Stop()
	tm.Stop() // idempotent

	assert.Equal(t, int32(0), fired.Load())
	assert.False(t, tm.Expired())
	assert.Equal(t, 2, tm.Remaining())
}

func TestTimer_NilCallback(t *testing.T) {
	tm := StartTimer(time.Second, nil)
	defer tm.Stop()

	assert.True(t, tm.tick())
	assert.True(t, tm.Expired())
}
