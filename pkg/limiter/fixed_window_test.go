package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAdmission(t *testing.T) {
	svc, _, err := newTestService(fixedWindowPolicy(3, "30s"))
	require.NoError(t, err)

	wantRemaining := []int{2, 1, 0}
	for i, want := range wantRemaining {
		dec, err := svc.CheckRateLimit("10.0.0.1", "/api")
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d should pass", i+1)
		assert.Equal(t, want, dec.Remaining)
	}

	for i := 0; i < 2; i++ {
		dec, err := svc.CheckRateLimit("10.0.0.1", "/api")
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 0, dec.Remaining)
		assert.Greater(t, dec.RetryAfter, 0)
	}
}

func TestFixedWindowAnchorsToFirstRequest(t *testing.T) {
	svc, clock, err := newTestService(fixedWindowPolicy(2, "30s"))
	require.NoError(t, err)

	first, err := svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	wantReset := clock.Now().Add(30 * time.Second).UnixMilli()
	assert.Equal(t, wantReset, first.ResetTime, "window opens at first arrival")

	// Second request inside the window keeps the original boundary.
	clock.Advance(10 * time.Second)
	second, err := svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	assert.Equal(t, wantReset, second.ResetTime)

	// Past the boundary a fresh window opens, anchored to the new arrival.
	clock.Advance(25 * time.Second)
	third, err := svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	assert.True(t, third.Allowed)
	assert.Equal(t, 1, third.Remaining)
	assert.Equal(t, clock.Now().Add(30*time.Second).UnixMilli(), third.ResetTime)
}

func TestFixedWindowTalliesDeniedRetries(t *testing.T) {
	svc, _, err := newTestService(fixedWindowPolicy(2, "1m"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.CheckRateLimit("c", "/api")
		require.NoError(t, err)
	}

	state, ok := svc.store.Get("c")
	require.True(t, ok)
	assert.Equal(t, 5, state.RequestCount, "denied requests are still counted")
	assert.Equal(t, StatusBlocked, state.Status)
}

func TestFixedWindowRetryAfterTracksWindowEnd(t *testing.T) {
	svc, clock, err := newTestService(fixedWindowPolicy(1, "30s"))
	require.NoError(t, err)

	_, err = svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)

	clock.Advance(12 * time.Second)
	dec, err := svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	assert.Equal(t, 18, dec.RetryAfter)
}

func TestFixedWindowStatusProgression(t *testing.T) {
	svc, _, err := newTestService(fixedWindowPolicy(5, "1m"))
	require.NoError(t, err)

	wantStatus := []Status{StatusActive, StatusActive, StatusActive, StatusWarning, StatusWarning}
	for i, want := range wantStatus {
		_, err := svc.CheckRateLimit("c", "/api")
		require.NoError(t, err)
		state, ok := svc.store.Get("c")
		require.True(t, ok)
		assert.Equal(t, want, state.Status, "after request %d", i+1)
	}

	_, err = svc.CheckRateLimit("c", "/api")
	require.NoError(t, err)
	state, _ := svc.store.Get("c")
	assert.Equal(t, StatusBlocked, state.Status)
}
