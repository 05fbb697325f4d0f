package limiter

import (
	"sync"
	"time"
)

// slidingWindow keeps an ordered log of request timestamps per client and
// admits a request only if fewer than the limit fall inside the trailing
// window. The log is authoritative and lives in this process; a summary is
// mirrored into the shared store purely so dashboards and activeClients see
// sliding-window clients too. Unlike the other two algorithms, this state is
// not shareable across instances.
type slidingWindow struct {
	store *Store

	mu  sync.Mutex
	log map[string][]time.Time
}

func newSlidingWindow(store *Store) *slidingWindow {
	return &slidingWindow{store: store, log: make(map[string][]time.Time)}
}

func (w *slidingWindow) check(clientID string, pol Policy, now time.Time) (Decision, ClientState) {
	window := pol.Window()
	windowStart := now.Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	stamps := w.log[clientID]
	kept := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= pol.RequestLimit {
		// Rejected requests are not appended to the log.
		w.log[clientID] = kept
		oldest := kept[0]
		state := ClientState{
			ClientID:     clientID,
			RequestCount: len(kept) + 1,
			ResetTime:    oldest.Add(window),
			Status:       StatusBlocked,
			Algorithm:    pol.Algorithm,
			LastRequest:  now,
		}
		w.store.Upsert(state)
		dec := Decision{
			Allowed:    false,
			Limit:      pol.RequestLimit,
			Remaining:  0,
			ResetTime:  state.ResetTime.UnixMilli(),
			RetryAfter: ceilSeconds(oldest.Sub(windowStart)),
		}
		return dec, state
	}

	kept = append(kept, now)
	w.log[clientID] = kept
	remaining := pol.RequestLimit - len(kept)
	state := ClientState{
		ClientID:     clientID,
		RequestCount: len(kept),
		ResetTime:    now.Add(window),
		Status:       remainingStatus(remaining, pol.RequestLimit),
		Algorithm:    pol.Algorithm,
		LastRequest:  now,
	}
	w.store.Upsert(state)
	return allowed(pol.RequestLimit, remaining, state.ResetTime), state
}

// reset drops every client's timestamp log. Called on policy replacement.
func (w *slidingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log = make(map[string][]time.Time)
}

// prune discards timestamps at or before cutoff and forgets clients whose
// logs empty out. Runs from the periodic cleanup loop.
func (w *slidingWindow) prune(cutoff time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for clientID, stamps := range w.log {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(w.log, clientID)
			continue
		}
		w.log[clientID] = kept
	}
}
