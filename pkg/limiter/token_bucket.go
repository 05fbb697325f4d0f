package limiter

import "time"

// tokenBucket reuses ClientState as a bucket: RequestCount is tokens
// consumed and ResetTime is the next refill instant. Refill is all-or-
// nothing: the bucket becomes full again only once the whole window has
// elapsed. This is deliberately not a continuous drip-refill bucket; the
// admission tests encode the binary behavior.
type tokenBucket struct {
	store *Store
}

func (b *tokenBucket) check(clientID string, pol Policy, now time.Time) (Decision, ClientState) {
	window := pol.Window()
	var dec Decision
	state := b.store.Update(clientID, func(prev *ClientState) ClientState {
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
		if prev.RequestCount >= pol.RequestLimit {
			// Empty bucket: deny without consuming further tokens.
			next.Status = StatusBlocked
			dec = denied(pol.RequestLimit, next.ResetTime, now)
			return next
		}
		next.RequestCount++
		next.Status = consumedStatus(next.RequestCount, pol.RequestLimit)
		dec = allowed(pol.RequestLimit, pol.RequestLimit-next.RequestCount, next.ResetTime)
		return next
	})
	return dec, state
}
