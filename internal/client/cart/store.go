package cart

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// document is the persisted form of a snapshot.
type document struct {
	Items        []models.CartItem `json:"items"`
	Degraded     []string          `json:"degraded,omitempty"`
	PendingClear bool              `json:"pending_clear,omitempty"`
}

func (d document) empty() bool {
	return len(d.Items) == 0 && len(d.Degraded) == 0 && !d.PendingClear
}

// storeKey is the local key of the snapshot for id.
func storeKey(id models.Identity) string {
	if id.IsAuthenticated() {
		return common.CartMirrorKey(id.UserID())
	}
	return common.KeyAnonymousCart
}

func (r *Reconciler) readDocument(ctx context.Context, key string) document {
	raw, err := r.local.Get(ctx, key)
	if err != nil {
		r.log.Warn(ctx, "local cart read failed", "key", key, "err", err)
		return document{}
	}
	if raw == nil {
		return document{}
	}

	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		r.log.Warn(ctx, "local cart is corrupt, starting empty", "key", key, "err", err)
		return document{}
	}
	d.Items = sanitize(d.Items)
	return d
}

func (r *Reconciler) writeDocument(ctx context.Context, key string, d document) {
	if d.empty() {
		r.deleteKey(ctx, key)
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		r.log.Warn(ctx, "local cart encode failed", "key", key, "err", err)
		return
	}
	if err := r.local.Set(ctx, key, raw); err != nil {
		r.log.Warn(ctx, "local cart write failed", "key", key, "err", err)
	}
}

func (r *Reconciler) deleteKey(ctx context.Context, key string) {
	if err := r.local.Delete(ctx, key); err != nil {
		r.log.Warn(ctx, "local cart delete failed", "key", key, "err", err)
	}
}

// persistLocked writes the current snapshot under the active identity's key.
// Callers hold r.opMu.
func (r *Reconciler) persistLocked(ctx context.Context) {
	r.mu.RLock()
	key := storeKey(r.identity)
	d := document{
		Items:        slices.Clone(r.items),
		Degraded:     sortedKeys(r.degraded),
		PendingClear: r.pendingClear,
	}
	r.mu.RUnlock()

	r.writeDocument(ctx, key, d)
}

// sanitize drops invalid items and items without a positive quantity.
func sanitize(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 || it.Validate() != nil {
			continue
		}
		out = append(out, it)
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
