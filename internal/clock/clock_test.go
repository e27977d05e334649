package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Hour)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRealSleepZeroDuration(t *testing.T) {
	assert.NoError(t, Real{}.Sleep(context.Background(), 0))
}

func TestFakeRecordsSleeps(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), time.Second))
	require.NoError(t, f.Sleep(context.Background(), 5*time.Second))
	f.Advance(time.Minute)

	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, f.Sleeps())
	assert.Equal(t, start.Add(time.Minute+6*time.Second), f.Now())
}

func TestFakeSleepCancelled(t *testing.T) {
	f := NewFake(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	assert.Empty(t, f.Sleeps())
}
