package limiter

import (
	"math"
	"time"
)

// Status classifies a client's position within its quota.
type Status string

const (
	StatusActive  Status = "active"
	StatusWarning Status = "warning"
	StatusBlocked Status = "blocked"
)

// ClientState is the mutable per-client record. For the token bucket,
// RequestCount holds tokens consumed (not remaining) and ResetTime is the
// next refill instant.
type ClientState struct {
	ClientID     string    `json:"clientId"`
	RequestCount int       `json:"requestCount"`
	ResetTime    time.Time `json:"resetTime"`
	Status       Status    `json:"status"`
	Algorithm    Algorithm `json:"algorithm"`
	LastRequest  time.Time `json:"lastRequest"`
}

// Decision is the outcome of a single rate limit check. ResetTime is epoch
// milliseconds; RetryAfter is whole seconds and set only on denial.
type Decision struct {
	Allowed    bool  `json:"allowed"`
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
	ResetTime  int64 `json:"resetTime"`
	RetryAfter int   `json:"retryAfter,omitempty"`
}

// consumedStatus classifies an allowed request: warning once the count has
// reached 80% of the limit.
func consumedStatus(count, limit int) Status {
	if count*5 >= limit*4 {
		return StatusWarning
	}
	return StatusActive
}

// remainingStatus classifies by quota left: warning at 20% remaining or less.
func remainingStatus(remaining, limit int) Status {
	if remaining*5 <= limit {
		return StatusWarning
	}
	return StatusActive
}

func allowed(limit, remaining int, reset time.Time) Decision {
	return Decision{Allowed: true, Limit: limit, Remaining: remaining, ResetTime: reset.UnixMilli()}
}

func denied(limit int, reset time.Time, now time.Time) Decision {
	return Decision{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetTime:  reset.UnixMilli(),
		RetryAfter: ceilSeconds(reset.Sub(now)),
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
