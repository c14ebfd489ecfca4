package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalGate_AdmitsWithinBurst(t *testing.T) {
	g := NewGlobalGate(50, 50)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestGlobalGate_ThrottleBlocksAllCallers(t *testing.T) {
	g := NewGlobalGate(50, 50)
	g.Throttle(80 * time.Millisecond)

	start := time.Now()
	require.NoError(t, g.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestGlobalGate_ThrottleWaitCancellable(t *testing.T) {
	g := NewGlobalGate(50, 50)
	g.Throttle(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGlobalGate_ShorterThrottleNeverTruncates(t *testing.T) {
	g := NewGlobalGate(50, 50)
	g.Throttle(200 * time.Millisecond)
	g.Throttle(10 * time.Millisecond)

	assert.Greater(t, g.BlockedFor(), 100*time.Millisecond)
}

func TestGlobalGate_ZeroThrottleIgnored(t *testing.T) {
	g := NewGlobalGate(50, 50)
	g.Throttle(0)
	g.Throttle(-time.Second)

	assert.Equal(t, time.Duration(0), g.BlockedFor())
}

func TestGlobalGate_Defaults(t *testing.T) {
	g := NewGlobalGate(0, 0)
	require.NotNil(t, g)
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, time.Duration(0), g.BlockedFor())
}
