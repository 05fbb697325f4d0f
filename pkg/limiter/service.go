package limiter

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCleanupInterval is how often expired client state is swept.
const DefaultCleanupInterval = 30 * time.Second

// Stats is the derived aggregate consumed by dashboards. ActiveClients is
// the live size of the state table, not an independently maintained counter.
type Stats struct {
	TotalRequests   int64   `json:"totalRequests"`
	RateLimited     int64   `json:"rateLimited"`
	ActiveClients   int     `json:"activeClients"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// Event is published to the observer after every evaluated check. Violation
// is non-nil only when the request was denied.
type Event struct {
	ClientID  string     `json:"clientId"`
	Endpoint  string     `json:"endpoint"`
	Decision  Decision   `json:"decision"`
	Violation *Violation `json:"violation,omitempty"`
	At        time.Time  `json:"at"`
}

// Observer receives decision events. It runs outside the engine's locks and
// must be treated as best-effort telemetry by implementations.
type Observer func(Event)

// Service orchestrates rate limit checks: it loads the active policy,
// dispatches to the configured algorithm, maintains aggregate counters, and
// records violations on denial.
type Service struct {
	// mu guards the active policy. Checks run under the read lock; policy
	// replacement takes the write lock and clears all state before
	// releasing it, so a swap and its reset are atomic to checkers.
	mu     sync.RWMutex
	policy *Policy

	store   *Store
	fixed   *fixedWindow
	sliding *slidingWindow
	bucket  *tokenBucket

	violations *violationLog
	observer   Observer

	totalRequests atomic.Int64
	rateLimited   atomic.Int64
	latencySum    atomic.Int64 // microseconds
	latencyCount  atomic.Int64

	now func() time.Time
	log zerolog.Logger
}

// NewService builds a service around the given store. No policy is active
// until SetPolicy is called.
func NewService(store *Store, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		fixed:      &fixedWindow{store: store},
		sliding:    newSlidingWindow(store),
		bucket:     &tokenBucket{store: store},
		violations: newViolationLog(),
		now:        time.Now,
		log:        logger,
	}
}

// SetObserver registers the decision event sink. Pass nil to remove it.
func (s *Service) SetObserver(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// SetPolicy validates and installs a new active policy. The entire state
// table and the sliding-window logs are cleared under the same critical
// section: no request is ever evaluated against a half-migrated table, and
// previously blocked clients start fresh.
func (s *Service) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = &p
	s.store.Clear()
	s.sliding.reset()
	s.log.Info().
		Str("algorithm", string(p.Algorithm)).
		Int("limit", p.RequestLimit).
		Str("window", p.TimeWindow).
		Str("client_id_type", string(p.ClientIDType)).
		Bool("active", p.Active).
		Msg("Policy replaced, client state cleared")
	return nil
}

// Policy returns a copy of the active policy.
func (s *Service) Policy() (Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.policy == nil {
		return Policy{}, false
	}
	return *s.policy, true
}

// CheckRateLimit evaluates one request for the given client key. The total
// request counter advances exactly once per call regardless of outcome; the
// rate-limited counter and the violation log advance only on denial.
func (s *Service) CheckRateLimit(clientKey, endpoint string) (Decision, error) {
	s.totalRequests.Add(1)

	dec, event, err := s.evaluate(clientKey, endpoint)
	if err != nil {
		return Decision{}, err
	}
	if obs := s.currentObserver(); obs != nil {
		obs(event)
	}
	return dec, nil
}

func (s *Service) evaluate(clientKey, endpoint string) (Decision, Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.policy == nil || !s.policy.Active {
		return Decision{}, Event{}, ErrNoActivePolicy
	}
	pol := *s.policy
	now := s.now()

	var (
		dec   Decision
		state ClientState
	)
	switch pol.Algorithm {
	case AlgorithmFixedWindow:
		dec, state = s.fixed.check(clientKey, pol, now)
	case AlgorithmSlidingWindow:
		dec, state = s.sliding.check(clientKey, pol, now)
	case AlgorithmTokenBucket:
		dec, state = s.bucket.check(clientKey, pol, now)
	default:
		return Decision{}, Event{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, pol.Algorithm)
	}

	event := Event{ClientID: clientKey, Endpoint: endpoint, Decision: dec, At: now}
	if !dec.Allowed {
		s.rateLimited.Add(1)
		v := s.violations.record(Violation{
			ClientID:  clientKey,
			Endpoint:  endpoint,
			Attempts:  state.RequestCount,
			Timestamp: now,
		})
		event.Violation = &v
	}
	return dec, event, nil
}

func (s *Service) currentObserver() Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observer
}

// Block freezes a client's state into blocked without deleting it and marks
// the client's retained violations. Administrative action only.
func (s *Service) Block(clientID string) error {
	if _, ok := s.store.Get(clientID); !ok {
		return ErrClientNotFound
	}
	s.store.Update(clientID, func(prev *ClientState) ClientState {
		if prev == nil {
			return ClientState{ClientID: clientID, Status: StatusBlocked}
		}
		next := *prev
		next.Status = StatusBlocked
		return next
	})
	s.violations.markBlocked(clientID)
	return nil
}

// RemoveClient drops a client's state and sliding-window log.
func (s *Service) RemoveClient(clientID string) {
	s.store.Delete(clientID)
	s.sliding.mu.Lock()
	delete(s.sliding.log, clientID)
	s.sliding.mu.Unlock()
}

// Clients lists live client states, most recently active first.
func (s *Service) Clients() []ClientState {
	return s.store.List()
}

// Violations returns the retained violation records, most recent first.
func (s *Service) Violations() []Violation {
	return s.violations.recent()
}

// ObserveLatency feeds the average response time stat. Best-effort
// telemetry recorded by the serving layer.
func (s *Service) ObserveLatency(d time.Duration) {
	s.latencySum.Add(d.Microseconds())
	s.latencyCount.Add(1)
}

// Stats returns the current aggregate counters. AvgResponseTime is in
// milliseconds.
func (s *Service) Stats() Stats {
	stats := Stats{
		TotalRequests: s.totalRequests.Load(),
		RateLimited:   s.rateLimited.Load(),
		ActiveClients: s.store.Len(),
	}
	if n := s.latencyCount.Load(); n > 0 {
		stats.AvgResponseTime = float64(s.latencySum.Load()) / float64(n) / 1000.0
	}
	return stats
}

// ActiveClients reports live state table occupancy.
func (s *Service) ActiveClients() int {
	return s.store.Len()
}

// Cleanup removes expired client state and prunes stale sliding-window
// timestamps. Returns the number of store entries removed.
func (s *Service) Cleanup(now time.Time) int {
	removed := s.store.CleanupExpired(now)
	s.mu.RLock()
	pol := s.policy
	s.mu.RUnlock()
	if pol != nil {
		s.sliding.prune(now.Add(-pol.Window()))
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("Expired client state swept")
	}
	return removed
}

// StartCleanup launches the periodic sweep and returns a stop function. The
// sweep never holds up the request path beyond the store's own lock.
func (s *Service) StartCleanup(interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup(s.now())
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
