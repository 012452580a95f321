package models

import (
	"context"
	"time"
)

// Subscription is the durable record of one subscriber watching one
// inventory item. (email, inventory_item_id) is unique; re-subscribing the
// same pair reactivates the record instead of duplicating it.
type Subscription struct {
	ID              int64     `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	InventoryItemID string    `json:"inventoryItemId" db:"inventory_item_id"`
	ProductID       string    `json:"productId,omitempty" db:"product_id"` // empty until resolved
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// SubscriptionStore defines subscription data access. The core pipeline only
// ever reads a snapshot and deletes; the subscribe endpoint upserts.
type SubscriptionStore interface {
	FindActiveByProduct(ctx context.Context, productID string) ([]Subscription, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	Upsert(ctx context.Context, email, inventoryItemID, productID string) (*Subscription, error)
}
