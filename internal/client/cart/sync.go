package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// MergeAnonymousCart moves the anonymous cart into the remote cart. It runs at
// most once per authenticated session and is a no-op in any other mode, so it
// is safe to call speculatively.
func (r *Reconciler) MergeAnonymousCart(ctx context.Context) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	r.mergeLocked(ctx)
}

// Sync reconciles degraded products with the remote cart and re-pulls the
// snapshot. It returns nil outside authenticated mode.
func (r *Reconciler) Sync(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if r.Mode() != ModeAuthenticated {
		return nil
	}
	return r.syncLocked(ctx)
}

// mergeLocked adds every anonymous item to the remote cart one at a time, in
// stored order, so repeated product ids accumulate deterministically.
func (r *Reconciler) mergeLocked(ctx context.Context) {
	r.mu.RLock()
	id, merged := r.identity, r.merged
	r.mu.RUnlock()

	if modeOf(id) != ModeAuthenticated {
		return
	}
	if merged {
		r.log.Debug(ctx, "anonymous cart already merged", "err", common.ErrConcurrencyConflict)
		return
	}

	d := r.readDocument(ctx, common.KeyAnonymousCart)
	failed := make([]bool, len(d.Items))
	nfailed := 0
	for i, it := range d.Items {
		if err := r.remote.AddOrIncrement(ctx, id.UserID(), it, it.Quantity); err != nil {
			r.log.Warn(ctx, "merge item failed", "product_id", it.ProductID, "qty", it.Quantity, "err", err)
			failed[i] = true
			nfailed++
		}
	}
	r.deleteKey(ctx, common.KeyAnonymousCart)

	r.mu.Lock()
	r.merged = true
	r.mu.Unlock()

	pulled := false
	if !r.hasDegraded() {
		if err := r.pullLocked(ctx); err != nil {
			r.log.Warn(ctx, "cart pull after merge failed", "err", err)
		} else {
			pulled = true
		}
	}

	// Items the pull could not show are folded into the snapshot; failed
	// ones are degraded so the next sync pushes them.
	r.mu.Lock()
	for i, it := range d.Items {
		if pulled && !failed[i] {
			continue
		}
		if j := r.indexLocked(it.ProductID); j >= 0 {
			r.items[j].Quantity += it.Quantity
		} else {
			r.items = append(r.items, it)
		}
		if failed[i] {
			r.degraded[it.ProductID] = struct{}{}
		}
	}
	r.mu.Unlock()
	r.persistLocked(ctx)

	r.log.Info(ctx, "anonymous cart merged", "items", len(d.Items), "failed", nfailed)
}

// syncLocked makes the remote cart match the snapshot for every degraded
// product, then replaces the snapshot with the remote one. Products whose
// write fails stay degraded and the snapshot is kept.
func (r *Reconciler) syncLocked(ctx context.Context) error {
	r.mu.RLock()
	userID := r.identity.UserID()
	pendingClear := r.pendingClear
	ids := sortedKeys(r.degraded)
	r.mu.RUnlock()

	if pendingClear {
		if err := r.remote.Clear(ctx, userID); err != nil {
			return fmt.Errorf("replay clear: %w", err)
		}
		r.mu.Lock()
		r.pendingClear = false
		r.mu.Unlock()
	}

	if len(ids) > 0 {
		remoteItems, err := r.remote.List(ctx, userID)
		if err != nil {
			return fmt.Errorf("list remote cart: %w", err)
		}
		remoteQty := make(map[string]int, len(remoteItems))
		for _, it := range remoteItems {
			remoteQty[it.ProductID] = it.Quantity
		}

		var errs []error
		for _, pid := range ids {
			if err := r.reconcileItem(ctx, userID, pid, remoteQty); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pid, err))
				continue
			}
			r.mu.Lock()
			delete(r.degraded, pid)
			r.mu.Unlock()
		}
		if len(errs) > 0 {
			r.persistLocked(ctx)
			return errors.Join(errs...)
		}
	}

	return r.pullLocked(ctx)
}

func (r *Reconciler) reconcileItem(ctx context.Context, userID, productID string, remoteQty map[string]int) error {
	r.mu.RLock()
	i := r.indexLocked(productID)
	var local models.CartItem
	if i >= 0 {
		local = r.items[i]
	}
	r.mu.RUnlock()

	rq, onRemote := remoteQty[productID]
	switch {
	case i < 0 && onRemote:
		return r.remote.Remove(ctx, userID, productID)
	case i < 0:
		return nil
	case !onRemote:
		return r.remote.AddOrIncrement(ctx, userID, local, local.Quantity)
	case rq != local.Quantity:
		return r.remote.SetQuantity(ctx, userID, productID, local.Quantity)
	}
	return nil
}

// pullLocked replaces the snapshot with the remote cart.
func (r *Reconciler) pullLocked(ctx context.Context) error {
	r.mu.RLock()
	userID := r.identity.UserID()
	r.mu.RUnlock()

	items, err := r.remote.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("list remote cart: %w", err)
	}

	r.mu.Lock()
	r.items = sanitize(items)
	r.mu.Unlock()

	r.persistLocked(ctx)
	return nil
}
