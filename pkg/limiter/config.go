// Package limiter implements the rate-limiting decision engine: the active
// policy, the three admission-control algorithms (fixed window, sliding
// window, token bucket), the per-client state store, and the orchestrating
// service that produces allow/deny decisions.
package limiter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Algorithm selects the admission-control strategy.
type Algorithm string

const (
	AlgorithmFixedWindow   Algorithm = "fixed-window"
	AlgorithmSlidingWindow Algorithm = "sliding-window"
	AlgorithmTokenBucket   Algorithm = "token-bucket"
)

// ClientIDType selects how a client key is derived from request metadata.
type ClientIDType string

const (
	ClientIDIP     ClientIDType = "ip"
	ClientIDAPIKey ClientIDType = "api-key"
	ClientIDUserID ClientIDType = "user-id"
)

// DefaultWindow is used when a policy's time window cannot be parsed.
const DefaultWindow = time.Minute

// Policy is an immutable snapshot of the enforcement rules. Only one policy
// is active at a time; replacing it clears all per-client state.
type Policy struct {
	Algorithm    Algorithm    `yaml:"algorithm" json:"algorithm"`
	RequestLimit int          `yaml:"request_limit" json:"requestLimit"`
	TimeWindow   string       `yaml:"time_window" json:"timeWindow"`
	ClientIDType ClientIDType `yaml:"client_id_type" json:"clientIdType"`
	Active       bool         `yaml:"active" json:"isActive"`
}

// Validate checks the policy at write time. A policy that passes Validate
// will never trigger ErrUnknownAlgorithm on the hot path.
func (p Policy) Validate() error {
	switch p.Algorithm {
	case AlgorithmFixedWindow, AlgorithmSlidingWindow, AlgorithmTokenBucket:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, p.Algorithm)
	}
	if p.RequestLimit <= 0 {
		return ErrInvalidLimit
	}
	switch p.ClientIDType {
	case ClientIDIP, ClientIDAPIKey, ClientIDUserID:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownClientIDType, p.ClientIDType)
	}
	return nil
}

// Window returns the parsed time window. Malformed windows fall back to
// DefaultWindow so the hot path stays available; Validate-time callers can
// use ParseWindow directly to surface the error.
func (p Policy) Window() time.Duration {
	d, err := ParseWindow(p.TimeWindow)
	if err != nil {
		return DefaultWindow
	}
	return d
}

// ParseWindow converts a textual duration of the form quantity+unit, where
// unit is one of s/m/h/d ("30s", "1m", "1h", "1d"). On any parse failure it
// returns DefaultWindow together with ErrInvalidDuration.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return DefaultWindow, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	value, unit := s[:len(s)-1], s[len(s)-1]
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return DefaultWindow, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return DefaultWindow, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
}
