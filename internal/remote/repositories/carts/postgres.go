// Package carts stores authenticated users' carts in PostgreSQL. It is the
// authoritative store the cart reconciler writes through to.
package carts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
)

type Repository interface {
	List(ctx context.Context, userID string) ([]models.CartItem, error)
	AddOrIncrement(ctx context.Context, userID string, item models.CartItem, qty int) error
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func wrap(err error) error {
	return fmt.Errorf("db error: %w", dbx.Classify(err))
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	query :=
		`SELECT product_id, title, price, quantity, metadata
		 FROM cart_items WHERE user_id = $1
		 ORDER BY created_at, product_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var (
			it   models.CartItem
			meta []byte
		)
		if err := rows.Scan(&it.ProductID, &it.Title, &it.Price, &it.Quantity, &meta); err != nil {
			return nil, wrap(err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &it.Metadata); err != nil {
				return nil, fmt.Errorf("%w: metadata of %s: %v", common.ErrDataIntegrity, it.ProductID, err)
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

// AddOrIncrement inserts item with qty, or adds qty to the stored quantity
// and refreshes title, price and metadata.
func (r *PostgresRepository) AddOrIncrement(ctx context.Context, userID string, item models.CartItem, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d", common.ErrDataIntegrity, qty)
	}
	meta, err := json.Marshal(metadataOrEmpty(item.Metadata))
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO cart_items (user_id, product_id, title, price, quantity, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET
		   quantity = cart_items.quantity + excluded.quantity,
		   title = excluded.title,
		   price = excluded.price,
		   metadata = excluded.metadata,
		   updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, userID, item.ProductID, item.Title, item.Price, qty, meta); err != nil {
		return wrap(err)
	}
	return nil
}

// SetQuantity stores qty; qty < 1 removes the product. A missing product is
// not an error.
func (r *PostgresRepository) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return r.Remove(ctx, userID, productID)
	}
	query :=
		`UPDATE cart_items SET quantity = $3, updated_at = now()
		 WHERE user_id = $1 AND product_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, productID, qty); err != nil {
		return wrap(err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, productID); err != nil {
		return wrap(err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return wrap(err)
	}
	return nil
}

func metadataOrEmpty(md []models.Metadata) []models.Metadata {
	if md == nil {
		return []models.Metadata{}
	}
	return md
}
