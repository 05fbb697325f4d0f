package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenBlock(t *testing.T) {
	svc, _, err := newTestService(tokenBucketPolicy(4, "30s"))
	require.NoError(t, err)

	var allowedCount, deniedCount int
	for i := 0; i < 6; i++ {
		dec, err := svc.CheckRateLimit("c", "/api")
		require.NoError(t, err)
		if dec.Allowed {
			allowedCount++
		} else {
			deniedCount++
			assert.Greater(t, dec.RetryAfter, 0)
		}
	}

	assert.Equal(t, 4, allowedCount, "no more than the limit passes before the first denial")
	assert.Equal(t, 2, deniedCount)
}

func TestTokenBucketDenialConsumesNoTokens(t *testing.T) {
	svc, _, err := newTestService(tokenBucketPolicy(3, "1m"))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := svc.CheckRateLimit("c", "/api")
		require.NoError(t, err)
	}

	state, ok := svc.store.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, state.RequestCount, "consumed tokens stay at the limit")
	assert.Equal(t, StatusBlocked, state.Status)
}

func TestTokenBucketRefillsAllAtOnce(t *testing.T) {
	svc, clock, err := newTestService(tokenBucketPolicy(2, "30s"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		dec, err := svc.CheckRateLimit("c", "/api")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}
	dec, err := svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// Half a window is not enough: the bucket refills only when the whole
	// window elapses, never proportionally.
	clock.Advance(15 * time.Second)
	dec, err = svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	clock.Advance(15 * time.Second)
	dec, err = svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "full bucket at the refill instant")
	assert.Equal(t, 1, dec.Remaining)
}
