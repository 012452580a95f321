package models

// RestockEvent is the ephemeral, per-webhook view of an inventory change.
// ProductID and AccessToken are filled in during resolution; neither is ever
// persisted by the pipeline.
type RestockEvent struct {
	InventoryItemID string `json:"inventoryItemId"`
	Available       int    `json:"available"`
	SourceDomain    string `json:"sourceDomain"`

	ProductID   string `json:"productId,omitempty"`
	AccessToken string `json:"-"`
}

// NotificationJob is one dispatch attempt for one matched subscriber. It
// carries no identity beyond its inputs and is not retried across requests.
type NotificationJob struct {
	RecipientEmail  string `json:"recipientEmail"`
	ProductID       string `json:"productId"`
	InventoryItemID string `json:"inventoryItemId"`
	SourceDomain    string `json:"sourceDomain"`
}

// DispatchResult records the settled outcome of one NotificationJob.
type DispatchResult struct {
	RecipientEmail string `json:"recipientEmail"`
	Err            error  `json:"-"`
}
