// Package cart keeps the shopping cart consistent across identity changes.
//
// The Reconciler owns one CartSnapshot and follows the Identity published by
// the session machine:
//
//   - Anonymous: the local store is authoritative (key cart:anonymous) and
//     every change is persisted immediately.
//   - Authenticated (Remote identity): the remote store is authoritative.
//     Changes are applied to the snapshot first and then sent to the remote
//     store; a failed remote write keeps the optimistic value and marks the
//     product degraded. The snapshot is mirrored locally under
//     cart:mirror:<user_id>.
//   - Offline (LocalOffline identity): the mirror is writable and every change
//     is degraded until the next successful Sync.
//
// On the first Remote identity of a session the anonymous cart is merged into
// the remote cart exactly once.
package cart

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

var ErrAlreadyInitialized = errors.New("cart reconciler already initialized")

// Mode is the reconciler's current authority.
type Mode int

const (
	ModeAnonymous Mode = iota
	ModeAuthenticated
	ModeOffline
)

func (m Mode) String() string {
	switch m {
	case ModeAuthenticated:
		return "authenticated"
	case ModeOffline:
		return "offline"
	default:
		return "anonymous"
	}
}

func modeOf(id models.Identity) Mode {
	switch id.Kind() {
	case models.IdentityRemote:
		return ModeAuthenticated
	case models.IdentityLocalOffline:
		return ModeOffline
	default:
		return ModeAnonymous
	}
}

// LocalStore is the local persistent key/value store. Get returns (nil, nil)
// for a missing key.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RemoteStore is the authoritative per-user cart.
type RemoteStore interface {
	List(ctx context.Context, userID string) ([]models.CartItem, error)
	// AddOrIncrement inserts item with qty or adds qty to the stored quantity.
	AddOrIncrement(ctx context.Context, userID string, item models.CartItem, qty int) error
	// SetQuantity stores qty; qty < 1 removes the product.
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// IdentitySource publishes the active identity. session.Machine satisfies it.
type IdentitySource interface {
	Identity() models.Identity
	SubscribeIdentity(fn func(prev, next models.Identity)) (unsubscribe func())
}
