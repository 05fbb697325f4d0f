package limiter

import "errors"

var (
	// ErrNoActivePolicy is returned when no policy is currently active.
	// Callers decide whether that means "pass everything" or a 5xx.
	ErrNoActivePolicy = errors.New("limiter: no active policy")

	// ErrUnknownAlgorithm is returned when the configured algorithm name is
	// not recognized. The engine never falls back to a different algorithm.
	ErrUnknownAlgorithm = errors.New("limiter: unknown algorithm")

	// ErrUnknownClientIDType is returned at validation time for an
	// unrecognized client identification mode.
	ErrUnknownClientIDType = errors.New("limiter: unknown client id type")

	// ErrInvalidDuration is returned for an unparsable time window.
	ErrInvalidDuration = errors.New("limiter: invalid time window")

	// ErrInvalidLimit is returned when the request limit is not positive.
	ErrInvalidLimit = errors.New("limiter: request limit must be positive")

	// ErrClientNotFound is returned by administrative actions targeting a
	// client with no live state.
	ErrClientNotFound = errors.New("limiter: client not found")
)
