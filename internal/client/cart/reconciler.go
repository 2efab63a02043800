package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

// Reconciler owns the cart snapshot of the active identity.
type Reconciler struct {
	local  LocalStore
	remote RemoteStore
	log    logging.Logger

	// opMu serializes mutations, merges, syncs and identity switches.
	opMu sync.Mutex

	mu           sync.RWMutex
	identity     models.Identity
	items        []models.CartItem
	degraded     map[string]struct{}
	pendingClear bool
	merged       bool
	loaded       bool

	baseCtx context.Context
	cancel  context.CancelFunc
	unbind  func()
}

// NewReconciler creates a Reconciler in anonymous mode. Call Init to load the
// snapshot and follow identity changes.
func NewReconciler(local LocalStore, remote RemoteStore, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reconciler{
		local:    local,
		remote:   remote,
		log:      logger.With("component", "cart"),
		degraded: make(map[string]struct{}),
	}
}

// Init binds the reconciler to src and loads the snapshot of its current
// identity. Identity changes are handled on the goroutine that publishes them.
func (r *Reconciler) Init(ctx context.Context, src IdentitySource) error {
	r.opMu.Lock()
	if r.unbind != nil {
		r.opMu.Unlock()
		return ErrAlreadyInitialized
	}
	r.baseCtx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.unbind = src.SubscribeIdentity(r.onIdentity)
	r.opMu.Unlock()

	r.SwitchIdentity(ctx, src.Identity())
	return nil
}

// Dispose stops following identity changes.
func (r *Reconciler) Dispose() {
	r.opMu.Lock()
	unbind, cancel := r.unbind, r.cancel
	r.unbind, r.cancel = nil, nil
	r.opMu.Unlock()

	if unbind != nil {
		unbind()
	}
	if cancel != nil {
		cancel()
	}
}

func (r *Reconciler) onIdentity(_, next models.Identity) {
	r.opMu.Lock()
	ctx := r.baseCtx
	r.opMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	r.SwitchIdentity(ctx, next)
}

// SwitchIdentity moves the reconciler to next. Switching to a new Remote
// identity reconciles degraded items and runs the anonymous merge.
func (r *Reconciler) SwitchIdentity(ctx context.Context, next models.Identity) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	prev, loaded := r.identity, r.loaded
	if loaded && prev.SameActor(next) {
		r.identity = next
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if prev.IsAuthenticated() && !next.IsAuthenticated() {
		r.deleteKey(ctx, common.CartMirrorKey(prev.UserID()))
	}

	d := r.readDocument(ctx, storeKey(next))

	r.mu.Lock()
	r.identity = next
	r.items = d.Items
	r.degraded = make(map[string]struct{}, len(d.Degraded))
	for _, id := range d.Degraded {
		r.degraded[id] = struct{}{}
	}
	r.pendingClear = d.PendingClear
	r.merged = false
	r.loaded = true
	r.mu.Unlock()

	r.log.Info(ctx, "cart mode changed", "mode", modeOf(next).String(), "identity", next.String(), "items", len(d.Items))

	if modeOf(next) != ModeAuthenticated {
		return
	}
	if r.hasDegraded() {
		if err := r.syncLocked(ctx); err != nil {
			r.log.Warn(ctx, "cart reconciliation deferred", "err", err)
		}
	}
	r.mergeLocked(ctx)
}

// AddItem adds one unit of item. Re-adding a product keeps its quantity
// count and takes the title, price and metadata of item, as the remote store
// does. Invalid items are rejected with common.ErrDataIntegrity and never
// stored.
func (r *Reconciler) AddItem(ctx context.Context, item models.CartItem) error {
	if err := item.Validate(); err != nil {
		r.log.Warn(ctx, "cart item rejected", "product_id", item.ProductID, "err", err)
		return err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	var stored models.CartItem
	if i := r.indexLocked(item.ProductID); i >= 0 {
		item.Quantity = r.items[i].Quantity + 1
		r.items[i] = item
		stored = item
	} else {
		item.Quantity = 1
		r.items = append(r.items, item)
		stored = item
	}
	r.mu.Unlock()

	r.commitLocked(ctx, stored.ProductID, func(userID string) error {
		return r.remote.AddOrIncrement(ctx, userID, stored, 1)
	})
	return nil
}

// RemoveItem drops productID. It returns common.ErrNotFound if the product is
// not in the cart.
func (r *Reconciler) RemoveItem(ctx context.Context, productID string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.removeLocked(ctx, productID)
}

// UpdateQuantity sets the quantity of productID; qty < 1 removes it.
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if qty < 1 {
		return r.removeLocked(ctx, productID)
	}

	r.mu.Lock()
	i := r.indexLocked(productID)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: product %s", common.ErrNotFound, productID)
	}
	r.items[i].Quantity = qty
	r.mu.Unlock()

	r.commitLocked(ctx, productID, func(userID string) error {
		return r.remote.SetQuantity(ctx, userID, productID, qty)
	})
	return nil
}

// Clear empties the cart. In anonymous mode the local record is removed.
func (r *Reconciler) Clear(ctx context.Context) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	r.items = nil
	id := r.identity
	r.mu.Unlock()

	switch modeOf(id) {
	case ModeAnonymous:
		r.deleteKey(ctx, common.KeyAnonymousCart)
		return
	case ModeOffline:
		r.mu.Lock()
		r.pendingClear = true
		clear(r.degraded)
		r.mu.Unlock()
	case ModeAuthenticated:
		err := r.remote.Clear(ctx, id.UserID())
		r.mu.Lock()
		if err != nil {
			r.pendingClear = true
		} else {
			r.pendingClear = false
		}
		clear(r.degraded)
		r.mu.Unlock()
		if err != nil {
			r.log.Warn(ctx, "remote cart clear failed, will replay", "err", err)
		}
	}
	r.persistLocked(ctx)
}

func (r *Reconciler) removeLocked(ctx context.Context, productID string) error {
	r.mu.Lock()
	i := r.indexLocked(productID)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: product %s", common.ErrNotFound, productID)
	}
	r.items = slices.Delete(r.items, i, i+1)
	r.mu.Unlock()

	r.commitLocked(ctx, productID, func(userID string) error {
		return r.remote.Remove(ctx, userID, productID)
	})
	return nil
}

// commitLocked finishes a snapshot change: it persists the snapshot and, in
// authenticated mode, sends the remote mutation. A failed remote mutation
// keeps the optimistic value and marks productID degraded.
func (r *Reconciler) commitLocked(ctx context.Context, productID string, remoteOp func(userID string) error) {
	r.mu.RLock()
	id := r.identity
	r.mu.RUnlock()

	switch modeOf(id) {
	case ModeOffline:
		r.markDegraded(productID)
	case ModeAuthenticated:
		if err := remoteOp(id.UserID()); err != nil {
			r.log.Warn(ctx, "remote cart write failed, keeping local value", "product_id", productID, "err", err)
			r.markDegraded(productID)
			break
		}
		if r.hasDegraded() {
			if err := r.syncLocked(ctx); err != nil {
				r.log.Debug(ctx, "cart reconciliation deferred", "err", err)
				break
			}
			return
		}
	}
	r.persistLocked(ctx)
}

func (r *Reconciler) markDegraded(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded[productID] = struct{}{}
}

func (r *Reconciler) hasDegraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.degraded) > 0 || r.pendingClear
}

func (r *Reconciler) indexLocked(productID string) int {
	return slices.IndexFunc(r.items, func(it models.CartItem) bool {
		return it.ProductID == productID
	})
}
