package limiter

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// maxViolations bounds the in-memory violation log; the oldest entry is
// evicted when the cap is reached.
const maxViolations = 100

// Violation is an immutable record of a denied request. IsBlocked flips to
// true only through an explicit administrative block, never from the normal
// decision flow.
type Violation struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Endpoint  string    `json:"endpoint"`
	Attempts  int       `json:"attempts"`
	Timestamp time.Time `json:"timestamp"`
	IsBlocked bool      `json:"isBlocked"`
}

// violationLog is the capped append-only log backing the dashboard.
type violationLog struct {
	mu      sync.Mutex
	entries []Violation
}

func newViolationLog() *violationLog {
	return &violationLog{entries: make([]Violation, 0, maxViolations)}
}

// record appends a violation, evicting the oldest entry past the cap, and
// returns the stored record with its assigned ID.
func (l *violationLog) record(v Violation) Violation {
	if v.ID == "" {
		v.ID = xid.New().String()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= maxViolations {
		l.entries = append(l.entries[1:len(l.entries):len(l.entries)], v)
		return v
	}
	l.entries = append(l.entries, v)
	return v
}

// recent returns the retained violations, most recent first.
func (l *violationLog) recent() []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Violation, len(l.entries))
	for i, v := range l.entries {
		out[len(l.entries)-1-i] = v
	}
	return out
}

// markBlocked flips IsBlocked on every retained violation for the client.
func (l *violationLog) markBlocked(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ClientID == clientID {
			l.entries[i].IsBlocked = true
		}
	}
}
