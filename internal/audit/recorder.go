// Package audit records per-attempt dispatch outcomes for operational
// inspection. Recording is strictly best-effort: a sink outage can never
// fail a webhook.
package audit

import (
	"context"
	"time"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// DispatchRecord is one settled notification attempt.
type DispatchRecord struct {
	RecipientEmail  string    `json:"recipientEmail"`
	ProductID       string    `json:"productId"`
	InventoryItemID string    `json:"inventoryItemId"`
	SourceDomain    string    `json:"sourceDomain"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurredAt"`
}

type Recorder interface {
	RecordDispatch(ctx context.Context, record DispatchRecord)
}

// NopRecorder discards records. Used when the audit sink is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordDispatch(context.Context, DispatchRecord) {}
