// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"

	"github.com/lib/pq"
)

// PostgresSubscriptionStore implements models.SubscriptionStore over the
// subscriptions table (see scripts/schema.sql).
type PostgresSubscriptionStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresSubscriptionStore(db *sql.DB, log logger.Logger) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "subscription-store"}),
	}
}

// FindActiveByProduct returns a single snapshot of all active subscriptions
// for productID. An empty productID matches nothing by definition; callers
// are expected to short-circuit before querying.
func (s *PostgresSubscriptionStore) FindActiveByProduct(ctx context.Context, productID string) ([]models.Subscription, error) {
	if productID == "" {
		return nil, nil
	}

	query := `SELECT id, email, inventory_item_id, COALESCE(product_id, ''), active, created_at
	          FROM subscriptions
	          WHERE product_id = $1 AND active = TRUE`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.InventoryItemID, &sub.ProductID, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}

	return subs, nil
}

// DeleteByIDs removes the given subscription ids and returns how many rows
// were actually deleted.
func (s *PostgresSubscriptionStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions rows affected: %w", err)
	}

	s.logger.Debug("deleted subscriptions", map[string]interface{}{
		"requested": len(ids),
		"deleted":   count,
	})

	return count, nil
}

// Upsert creates a subscription keyed on (email, inventory_item_id) or
// reactivates the existing pair, refreshing its product id.
func (s *PostgresSubscriptionStore) Upsert(ctx context.Context, email, inventoryItemID, productID string) (*models.Subscription, error) {
	query := `INSERT INTO subscriptions (email, inventory_item_id, product_id, active)
	          VALUES ($1, $2, NULLIF($3, ''), TRUE)
	          ON CONFLICT (email, inventory_item_id)
	          DO UPDATE SET active = TRUE, product_id = COALESCE(NULLIF(EXCLUDED.product_id, ''), subscriptions.product_id)
	          RETURNING id, email, inventory_item_id, COALESCE(product_id, ''), active, created_at`

	var sub models.Subscription
	err := s.db.QueryRowContext(ctx, query, email, inventoryItemID, productID).Scan(
		&sub.ID, &sub.Email, &sub.InventoryItemID, &sub.ProductID, &sub.Active, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("upsert subscription returned no row")
		}
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	return &sub, nil
}
