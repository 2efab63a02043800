// Package profiles stores user profiles in PostgreSQL. It satisfies the
// session machine's profile store.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns common.ErrNotFound for a user without a profile.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query :=
		`SELECT user_id, display_name, email, phone, address, updated_at
		 FROM profiles WHERE user_id = $1`

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&p.UserID, &p.DisplayName, &p.Email, &p.Phone, &p.Address, &p.UpdatedAt)
	if err != nil {
		err = dbx.Classify(err)
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Upsert writes p and returns it with the stored updated_at.
func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query :=
		`INSERT INTO profiles (user_id, display_name, email, phone, address)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   display_name = excluded.display_name,
		   email = excluded.email,
		   phone = excluded.phone,
		   address = excluded.address,
		   updated_at = now()
		 RETURNING updated_at`

	out := *p
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.DisplayName, p.Email, p.Phone, p.Address).
		Scan(&out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return &out, nil
}
