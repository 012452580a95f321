// internal/subscribe/handler.go
package subscribe

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const requestSchemaJSON = `{
  "type": "object",
  "required": ["email", "inventoryItemId"],
  "properties": {
    "email": {"type": "string", "minLength": 5, "maxLength": 255, "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
    "inventoryItemId": {"type": "string", "minLength": 1, "maxLength": 64},
    "productId": {"type": "string", "maxLength": 64}
  },
  "additionalProperties": false
}`

var requestSchema = gojsonschema.NewStringLoader(requestSchemaJSON)

type request struct {
	Email           string `json:"email"`
	InventoryItemID string `json:"inventoryItemId"`
	ProductID       string `json:"productId,omitempty"`
}

// Handler implements the public subscribe endpoint: validate, upsert keyed
// on (email, inventory item), 201 with the stored record.
type Handler struct {
	store  models.SubscriptionStore
	logger logger.Logger
}

func NewHandler(store models.SubscriptionStore, log logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "subscribe-endpoint"}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w, r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
		h.handlePost(w, r)
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	result, err := gojsonschema.Validate(requestSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		h.writeError(w, http.StatusBadRequest, strings.Join(details, "; "))
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	sub, err := h.store.Upsert(r.Context(), req.Email, req.InventoryItemID, req.ProductID)
	if err != nil {
		h.logger.WithError(err).Error("subscription upsert failed", map[string]interface{}{
			"inventoryItemId": req.InventoryItemID,
		})
		h.writeError(w, http.StatusInternalServerError, "failed to store subscription")
		return
	}

	h.logger.Info("subscription stored", map[string]interface{}{
		"subscriptionId":  sub.ID,
		"inventoryItemId": sub.InventoryItemID,
		"productId":       sub.ProductID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":           true,
		"subscription": sub,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeCORSHeaders mirrors the request origin so the storefront-embedded
// form can call the endpoint cross-origin.
func writeCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}
