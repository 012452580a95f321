// internal/webhook/normalizer.go
package webhook

import (
	"encoding/json"

	"restock-dispatcher/internal/common/errors"
	"restock-dispatcher/internal/models"
)

// inventoryPayload mirrors the platform's inventory_levels/update body. The
// item id arrives as a JSON number; available may be absent or null.
type inventoryPayload struct {
	InventoryItemID json.Number `json:"inventory_item_id"`
	Available       *int        `json:"available"`
}

// ParseRestockEvent normalizes a verified body into a RestockEvent. Absent
// or null available defaults to 0. A body that is not valid JSON or that
// lacks an inventory item id is a MALFORMED_PAYLOAD error.
func ParseRestockEvent(rawBody []byte, sourceDomain string) (*models.RestockEvent, error) {
	var payload inventoryPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, errors.NewMalformedPayloadError(err)
	}

	if payload.InventoryItemID.String() == "" {
		return nil, errors.NewMalformedPayloadError(errMissingItemID)
	}

	available := 0
	if payload.Available != nil {
		available = *payload.Available
	}
	if available < 0 {
		available = 0
	}

	return &models.RestockEvent{
		InventoryItemID: payload.InventoryItemID.String(),
		Available:       available,
		SourceDomain:    sourceDomain,
	}, nil
}

type missingFieldError string

func (e missingFieldError) Error() string { return string(e) }

const errMissingItemID = missingFieldError("payload has no inventory_item_id")
