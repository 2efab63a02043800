package session

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// IdentityProvider issues and rotates sessions and reports changes through
// Subscribe. Subscribe delivers an INITIAL_SESSION event to each new
// subscriber.
type IdentityProvider interface {
	Subscribe(fn func(models.ProviderEvent)) (unsubscribe func())
	CurrentSession(ctx context.Context) (*models.Session, error)
	SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// ProfileStore reads and creates profiles. Get returns common.ErrNotFound for
// a user without a profile.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

// RoleStore answers role membership questions.
type RoleStore interface {
	HasRole(ctx context.Context, userID string, role models.Role) (bool, error)
}

// KVStore is the local persistent store. Get returns (nil, nil) on a miss.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
