// Package validity tracks how fresh each cached session domain is.
//
// A domain is valid iff now - last_checked_at < TTL. The tracker performs no
// I/O; callers decide what to refetch from IsValid.
package validity

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/clock"
)

// DefaultTTL is how long a checked domain stays valid.
const DefaultTTL = 5 * time.Minute

// Domain names a cached piece of session state.
type Domain string

const (
	DomainProfile Domain = "profile"
	DomainRole    Domain = "role"
)

// Domains lists every tracked domain.
var Domains = []Domain{DomainProfile, DomainRole}

// Tracker records the last successful (or deliberately accepted) check per domain.
type Tracker struct {
	mu      sync.RWMutex
	clock   clock.Clock
	ttl     time.Duration
	checked map[Domain]time.Time
}

// NewTracker creates a Tracker. A non-positive ttl falls back to DefaultTTL.
func NewTracker(c clock.Clock, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{clock: c, ttl: ttl, checked: make(map[Domain]time.Time)}
}

// TTL returns the validity window.
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// MarkChecked records now as the last check of d.
func (t *Tracker) MarkChecked(d Domain) {
	t.MarkCheckedAt(d, t.clock.Now())
}

// MarkCheckedAt records at as the last check of d. It is used when restoring
// persisted state; a zero time is ignored.
func (t *Tracker) MarkCheckedAt(d Domain, at time.Time) {
	if at.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked[d] = at
}

// IsValid reports whether d was checked less than TTL ago.
func (t *Tracker) IsValid(d Domain) bool {
	t.mu.RLock()
	at, ok := t.checked[d]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return t.clock.Now().Sub(at) < t.ttl
}

// Stale returns the domains that need a refetch, in Domains order.
func (t *Tracker) Stale() []Domain {
	var out []Domain
	for _, d := range Domains {
		if !t.IsValid(d) {
			out = append(out, d)
		}
	}
	return out
}

// LastChecked returns when d was last checked.
func (t *Tracker) LastChecked(d Domain) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.checked[d]
	return at, ok
}

// Invalidate forgets the last check of the given domains.
func (t *Tracker) Invalidate(ds ...Domain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range ds {
		delete(t.checked, d)
	}
}

// Reset forgets every domain.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.checked)
}
