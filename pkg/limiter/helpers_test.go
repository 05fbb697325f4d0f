package limiter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock drives algorithm time deterministically in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(pol Policy) (*Service, *fakeClock, error) {
	svc := NewService(NewStore(), zerolog.Nop())
	clock := newFakeClock()
	svc.now = clock.Now
	if err := svc.SetPolicy(pol); err != nil {
		return nil, nil, err
	}
	return svc, clock, nil
}

func fixedWindowPolicy(limit int, window string) Policy {
	return Policy{
		Algorithm:    AlgorithmFixedWindow,
		RequestLimit: limit,
		TimeWindow:   window,
		ClientIDType: ClientIDIP,
		Active:       true,
	}
}

func slidingWindowPolicy(limit int, window string) Policy {
	pol := fixedWindowPolicy(limit, window)
	pol.Algorithm = AlgorithmSlidingWindow
	return pol
}

func tokenBucketPolicy(limit int, window string) Policy {
	pol := fixedWindowPolicy(limit, window)
	pol.Algorithm = AlgorithmTokenBucket
	return pol
}
