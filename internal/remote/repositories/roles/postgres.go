// Package roles stores role assignments in PostgreSQL.
package roles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/dbx"
)

type Repository interface {
	HasRole(ctx context.Context, userID string, role models.Role) (bool, error)
	Grant(ctx context.Context, userID string, role models.Role) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ok, nil
}

// Grant is idempotent.
func (r *PostgresRepository) Grant(ctx context.Context, userID string, role models.Role) error {
	query :=
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id, role) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, string(role)); err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}
