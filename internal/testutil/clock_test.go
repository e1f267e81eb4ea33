package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/offpos/internal/clock"
)

var _ clock.Clock = (*StepClock)(nil)

func TestStepClock_StartsAtStart(t *testing.T) {
	c := NewDefaultClock()
	assert.Equal(t, Epoch, c.Peek())
	assert.Equal(t, int64(0), c.Calls())
}

func TestStepClock_NowAdvances(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := NewStepClock(start, 2*time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, start.Add(4*time.Second), c.Now())
	assert.Equal(t, int64(3), c.Calls())
}

func TestStepClock_Reset(t *testing.T) {
	c := NewDefaultClock()
	c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, int64(0), c.Calls())
	assert.Equal(t, Epoch, c.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	c := NewStepClock(Epoch, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				ts := c.Now()
				mu.Lock()
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), c.Calls())
}
