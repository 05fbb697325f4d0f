package limiter

import "time"

// fixedWindow counts requests in windows anchored to each client's first
// request, not to calendar boundaries: a client's window opens on arrival
// and closes exactly one window duration later. Requests past the limit are
// denied but still tallied, so repeated denials keep raising the count.
type fixedWindow struct {
	store *Store
}

func (f *fixedWindow) check(clientID string, pol Policy, now time.Time) (Decision, ClientState) {
	window := pol.Window()
	var dec Decision
	state := f.store.Update(clientID, func(prev *ClientState) ClientState {
		if prev == nil || !now.Before(prev.ResetTime) {
			next := ClientState{
				ClientID:     clientID,
				RequestCount: 1,
				ResetTime:    now.Add(window),
				Status:       consumedStatus(1, pol.RequestLimit),
				Algorithm:    pol.Algorithm,
				LastRequest:  now,
			}
			dec = allowed(pol.RequestLimit, pol.RequestLimit-1, next.ResetTime)
			return next
		}

		next := *prev
		next.Algorithm = pol.Algorithm
		next.LastRequest = now
		next.RequestCount++
		if prev.RequestCount >= pol.RequestLimit {
			next.Status = StatusBlocked
			dec = denied(pol.RequestLimit, next.ResetTime, now)
			return next
		}
		next.Status = consumedStatus(next.RequestCount, pol.RequestLimit)
		dec = allowed(pol.RequestLimit, pol.RequestLimit-next.RequestCount, next.ResetTime)
		return next
	})
	return dec, state
}
