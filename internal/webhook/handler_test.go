// internal/webhook/handler_test.go
package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/common/observability"
	"restock-dispatcher/internal/fanout"
	"restock-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Mock Implementations
// ==========================

type MockResolver struct {
	ResolveFunc func(ctx context.Context, event *models.RestockEvent) bool
	Calls       int
}

func (m *MockResolver) Resolve(ctx context.Context, event *models.RestockEvent) bool {
	m.Calls++
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, event)
	}
	return false
}

type MockContentBuilder struct {
	PrepareContentFunc func(ctx context.Context, event *models.RestockEvent) *models.EmailContent
}

func (m *MockContentBuilder) PrepareContent(ctx context.Context, event *models.RestockEvent) *models.EmailContent {
	if m.PrepareContentFunc != nil {
		return m.PrepareContentFunc(ctx, event)
	}
	return &models.EmailContent{Subject: "test", HTMLBody: "<p>test</p>"}
}

type MockEngine struct {
	DispatchFunc func(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result
	Calls        int
}

func (m *MockEngine) Dispatch(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result {
	m.Calls++
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, event, content)
	}
	return &fanout.Result{}
}

// ==========================
// Test Helper Functions
// ==========================

const testSecret = "test-webhook-secret"

func newTestHandler(t *testing.T, resolver *MockResolver, engine *MockEngine) *Handler {
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.SendTimeout = 5 * time.Second

	return NewHandler(cfg, resolver, &MockContentBuilder{}, engine, &observability.Observability{}, logger.NewTestLogger(t))
}

func signedRequest(body string, domain string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inventory", bytes.NewReader([]byte(body)))
	req.Header.Set("X-Shopify-Hmac-Sha256", signBody(testSecret, []byte(body)))
	if domain != "" {
		req.Header.Set("X-Shopify-Shop-Domain", domain)
	}
	return req
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_RejectsBadSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
	}{
		{name: "missing header", signature: ""},
		{name: "wrong signature", signature: signBody("other-secret", []byte(`{"inventory_item_id": 1, "available": 5}`))},
		{name: "signature over different body", signature: signBody(testSecret, []byte(`{}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &MockResolver{}
			engine := &MockEngine{}
			handler := newTestHandler(t, resolver, engine)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/inventory", bytes.NewReader([]byte(`{"inventory_item_id": 1, "available": 5}`)))
			if tt.signature != "" {
				req.Header.Set("X-Shopify-Hmac-Sha256", tt.signature)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			// A rejected request must do no downstream work at all.
			assert.Zero(t, resolver.Calls)
			assert.Zero(t, engine.Calls)
		})
	}
}

func TestHandler_MalformedPayload(t *testing.T) {
	resolver := &MockResolver{}
	engine := &MockEngine{}
	handler := newTestHandler(t, resolver, engine)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(`{"available": 5`, "shop.example.com"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, resolver.Calls)
	assert.Zero(t, engine.Calls)
}

func TestHandler_ZeroAvailability(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "explicit zero", body: `{"inventory_item_id": 806092912, "available": 0}`},
		{name: "absent available", body: `{"inventory_item_id": 806092912}`},
		{name: "negative available", body: `{"inventory_item_id": 806092912, "available": -2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &MockResolver{}
			engine := &MockEngine{}
			handler := newTestHandler(t, resolver, engine)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, signedRequest(tt.body, "shop.example.com"))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())
			assert.Zero(t, resolver.Calls)
			assert.Zero(t, engine.Calls)
		})
	}
}

func TestHandler_DispatchedEvent(t *testing.T) {
	resolver := &MockResolver{
		ResolveFunc: func(ctx context.Context, event *models.RestockEvent) bool {
			assert.Equal(t, "806092912", event.InventoryItemID)
			assert.Equal(t, 5, event.Available)
			assert.Equal(t, "shop.example.com", event.SourceDomain)
			event.ProductID = "632910392"
			event.AccessToken = "shpat_test"
			return true
		},
	}
	engine := &MockEngine{
		DispatchFunc: func(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result {
			assert.Equal(t, "632910392", event.ProductID)
			assert.NotNil(t, content)
			return &fanout.Result{Matched: 3, Sent: 3, Deleted: 3}
		},
	}
	handler := newTestHandler(t, resolver, engine)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(`{"inventory_item_id": 806092912, "available": 5}`, "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, 1, resolver.Calls)
	assert.Equal(t, 1, engine.Calls)
}

func TestHandler_UnresolvedEventStillSucceeds(t *testing.T) {
	// Resolution failures degrade; the webhook response never surfaces them.
	resolver := &MockResolver{
		ResolveFunc: func(ctx context.Context, event *models.RestockEvent) bool {
			return false
		},
	}
	engine := &MockEngine{
		DispatchFunc: func(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result {
			assert.Empty(t, event.ProductID)
			return &fanout.Result{FallbackReason: fanout.ReasonUnresolved}
		},
	}
	handler := newTestHandler(t, resolver, engine)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(`{"inventory_item_id": 806092912, "available": 5}`, "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, 1, engine.Calls)
}

func TestHandler_RedeliveryAfterCleanup(t *testing.T) {
	// A redelivered event finds no remaining subscriptions and degrades to
	// the fallback path, still returning 200.
	resolver := &MockResolver{
		ResolveFunc: func(ctx context.Context, event *models.RestockEvent) bool {
			event.ProductID = "632910392"
			return true
		},
	}
	engine := &MockEngine{
		DispatchFunc: func(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result {
			return &fanout.Result{FallbackReason: fanout.ReasonNoSubscribers}
		},
	}
	handler := newTestHandler(t, resolver, engine)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(`{"inventory_item_id": 806092912, "available": 5}`, "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

// ==========================
// Edge Cases
// ==========================

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &MockResolver{}, &MockEngine{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/webhooks/inventory", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "method %s", method)
	}
}

func TestHandler_MissingDomainHeader(t *testing.T) {
	// Without a source domain the event cannot resolve, but the pipeline
	// still runs to the fallback and returns 200.
	resolver := &MockResolver{
		ResolveFunc: func(ctx context.Context, event *models.RestockEvent) bool {
			assert.Empty(t, event.SourceDomain)
			return false
		},
	}
	engine := &MockEngine{
		DispatchFunc: func(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result {
			return &fanout.Result{FallbackReason: fanout.ReasonUnresolved}
		},
	}
	handler := newTestHandler(t, resolver, engine)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(`{"inventory_item_id": 806092912, "available": 5}`, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resolver.Calls)
	assert.Equal(t, 1, engine.Calls)
}
