package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_FrozenUntilAdvanced(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	got := clock.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	assert.Equal(t, want, got)
	assert.Equal(t, want, clock.Now())
}

func TestFixedClock_Set(t *testing.T) {
	clock := NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	abs := time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)
	clock.Set(abs)
	assert.Equal(t, abs, clock.Now())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(time.Second)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(800*time.Second), clock.Now())
}
