// internal/catalog/client_test.go
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restock-dispatcher/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		APIVersion: "2025-10",
		Timeout:    5 * time.Second,
		BaseURL:    srv.URL,
	}, logger.NewTestLogger(t))

	return client, srv
}

func respondData(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"data": ` + data + `}`))
}

// ==========================
// ResolveProductID
// ==========================

func TestClient_ResolveProductID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "inventoryItem")
		assert.Equal(t, "gid://shopify/InventoryItem/806092912", req.Variables["id"])

		respondData(w, `{
			"inventoryItem": {
				"id": "gid://shopify/InventoryItem/806092912",
				"variant": {
					"id": "gid://shopify/ProductVariant/39072856",
					"sku": "IPOD2008PINK",
					"product": {"id": "gid://shopify/Product/632910392", "title": "iPod Nano", "handle": "ipod-nano"}
				}
			}
		}`)
	})

	productID, err := client.ResolveProductID(context.Background(), "shop.example.com", "shpat_test", "806092912")

	assert.NoError(t, err)
	assert.Equal(t, "632910392", productID)
}

func TestClient_ResolveProductID_UnknownItem(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "null inventory item", data: `{"inventoryItem": null}`},
		{name: "item without variant", data: `{"inventoryItem": {"id": "gid://shopify/InventoryItem/1", "variant": null}}`},
		{name: "variant without product", data: `{"inventoryItem": {"id": "gid://shopify/InventoryItem/1", "variant": {"id": "gid://shopify/ProductVariant/2", "product": null}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respondData(w, tt.data)
			})

			productID, err := client.ResolveProductID(context.Background(), "shop.example.com", "shpat_test", "1")

			// An unknown item is an empty resolution, not an error.
			assert.NoError(t, err)
			assert.Empty(t, productID)
		})
	}
}

func TestClient_ResolveProductID_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "graphql errors in envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"errors": [{"message": "Invalid API key or access token"}]}`))
			},
		},
		{
			name: "invalid JSON response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>rate limited</html>`))
			},
		},
		{
			name: "empty envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)

			productID, err := client.ResolveProductID(context.Background(), "shop.example.com", "shpat_test", "806092912")

			assert.Error(t, err)
			assert.Empty(t, productID)
		})
	}
}

// ==========================
// GetProductOverview
// ==========================

func TestClient_GetProductOverview(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gid://shopify/Product/632910392", req.Variables["id"])
		assert.Contains(t, req.Query, "brand", "overview query should request the shop logo")

		respondData(w, `{
			"product": {
				"id": "gid://shopify/Product/632910392",
				"title": "iPod Nano",
				"handle": "ipod-nano",
				"featuredImage": {"url": "https://cdn.example.com/ipod.png"},
				"variants": {"nodes": [{"id": "gid://shopify/ProductVariant/39072856", "price": "199.00"}]}
			},
			"shop": {
				"name": "Acme Outfitters",
				"currencyCode": "USD",
				"primaryDomain": {"host": "acme.example.com"},
				"brand": {"logo": {"image": {"url": "https://cdn.example.com/acme-logo.png"}}}
			}
		}`)
	})

	product, shop, err := client.GetProductOverview(context.Background(), "acme.myshopify.com", "shpat_test", "632910392")

	assert.NoError(t, err)
	assert.NotNil(t, product)
	assert.Equal(t, "632910392", product.ID)
	assert.Equal(t, "iPod Nano", product.Title)
	assert.Equal(t, "ipod-nano", product.Handle)
	assert.Equal(t, "https://cdn.example.com/ipod.png", product.ImageURL)
	assert.Equal(t, "39072856", product.VariantID)
	assert.Equal(t, "199.00", product.Price)

	assert.NotNil(t, shop)
	assert.Equal(t, "Acme Outfitters", shop.Name)
	assert.Equal(t, "USD", shop.Currency)
	assert.Equal(t, "acme.example.com", shop.Domain)
	assert.Equal(t, "https://cdn.example.com/acme-logo.png", shop.LogoURL)
}

func TestClient_GetProductOverview_NoBrandLogo(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondData(w, `{
			"product": {"id": "gid://shopify/Product/632910392", "title": "iPod Nano", "handle": "ipod-nano", "featuredImage": null, "variants": {"nodes": []}},
			"shop": {"name": "Acme Outfitters", "currencyCode": "USD", "primaryDomain": {"host": "acme.example.com"}, "brand": {"logo": null}}
		}`)
	})

	_, shop, err := client.GetProductOverview(context.Background(), "shop.example.com", "shpat_test", "632910392")

	assert.NoError(t, err)
	assert.NotNil(t, shop)
	assert.Empty(t, shop.LogoURL)
}

func TestClient_GetProductOverview_MissingProduct(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondData(w, `{"product": null, "shop": {"name": "Acme"}}`)
	})

	product, shop, err := client.GetProductOverview(context.Background(), "shop.example.com", "shpat_test", "1")

	assert.NoError(t, err)
	assert.Nil(t, product)
	assert.Nil(t, shop)
}

func TestClient_GetProductOverview_SparseMetadata(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondData(w, `{
			"product": {"id": "gid://shopify/Product/632910392", "title": "iPod Nano", "handle": "", "featuredImage": null, "variants": {"nodes": []}},
			"shop": null
		}`)
	})

	product, shop, err := client.GetProductOverview(context.Background(), "shop.example.com", "shpat_test", "632910392")

	assert.NoError(t, err)
	assert.NotNil(t, product)
	assert.Empty(t, product.ImageURL)
	assert.Empty(t, product.VariantID)
	assert.Empty(t, product.Price)

	// The request domain stands in when the shop block is missing.
	assert.NotNil(t, shop)
	assert.Equal(t, "shop.example.com", shop.Domain)
}

// ==========================
// Helpers
// ==========================

func TestExtractNumericID(t *testing.T) {
	assert.Equal(t, "632910392", extractNumericID("gid://shopify/Product/632910392"))
	assert.Equal(t, "39072856", extractNumericID("gid://shopify/ProductVariant/39072856"))
	assert.Equal(t, "632910392", extractNumericID("632910392"))
	assert.Equal(t, "", extractNumericID(""))
}

func TestClient_EndpointFor(t *testing.T) {
	client := NewClient(Config{APIVersion: "2025-10", Timeout: time.Second}, logger.NewNoOpLogger())

	assert.Equal(t,
		"https://shop.example.com/admin/api/2025-10/graphql.json",
		client.endpointFor("shop.example.com"),
	)
}
