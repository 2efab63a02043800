// Package refreshtokens declares the contract for storing the opaque refresh
// tokens issued alongside access tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/storefront/internal/remote/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find returns common.ErrNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for an unknown token.
	Delete(ctx context.Context, token string) error
}
