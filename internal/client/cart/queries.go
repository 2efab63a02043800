package cart

import (
	"slices"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// Items returns a copy of the snapshot.
func (r *Reconciler) Items() []models.CartItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

// Total is Σ price × quantity in minor units.
func (r *Reconciler) Total() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, it := range r.items {
		total += it.Subtotal()
	}
	return total
}

// Count is Σ quantity.
func (r *Reconciler) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, it := range r.items {
		n += it.Quantity
	}
	return n
}

func (r *Reconciler) Contains(productID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(productID) >= 0
}

// IsDegraded reports whether productID awaits reconciliation with the remote cart.
func (r *Reconciler) IsDegraded(productID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.degraded[productID]
	return ok
}

// Degraded returns the product ids awaiting reconciliation, sorted.
func (r *Reconciler) Degraded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.degraded)
}

// PendingClear reports whether a failed clear will be replayed on the next sync.
func (r *Reconciler) PendingClear() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pendingClear
}

func (r *Reconciler) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return modeOf(r.identity)
}

// Merged reports whether the anonymous cart was merged in this session.
func (r *Reconciler) Merged() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.merged
}
