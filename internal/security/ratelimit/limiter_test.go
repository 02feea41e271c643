package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestLimiter_EmptyKeyAndDisabled(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()
	assert.True(t, l.Allow(""))
	assert.True(t, l.Allow(""))

	off := NewLimiter(0, time.Minute)
	defer off.Stop()
	for i := 0; i < 5; i++ {
		assert.True(t, off.Allow("k"))
	}
}

func TestLimiter_PurgeDropsStaleBuckets(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	defer l.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(10 * time.Minute)
	l.Allow("b")
	l.purge()

	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "b")
}
