// internal/catalog/client.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	commonhttp "restock-dispatcher/internal/common/http"
	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"
)

const inventoryItemQuery = `
query getProductFromInventoryItem($id: ID!) {
  inventoryItem(id: $id) {
    id
    variant {
      id
      sku
      product {
        id
        title
        handle
      }
    }
  }
}`

const productOverviewQuery = `
query getProductOverview($id: ID!) {
  product(id: $id) {
    id
    title
    handle
    featuredImage {
      url
    }
    variants(first: 1) {
      nodes {
        id
        price
      }
    }
  }
  shop {
    name
    currencyCode
    primaryDomain {
      host
    }
    brand {
      logo {
        image {
          url
        }
      }
    }
  }
}`

// Client queries the catalog platform's Admin GraphQL API. One client is
// shared across requests; the per-shop credential travels with each call.
type Client struct {
	httpClient *commonhttp.Client
	apiVersion string
	baseURL    string // test override; empty in production
	logger     logger.Logger
}

type Config struct {
	APIVersion string
	Timeout    time.Duration

	// BaseURL overrides the per-domain admin URL. Tests point it at a local
	// httptest server.
	BaseURL string
}

func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		httpClient: commonhttp.NewClient(cfg.Timeout),
		apiVersion: cfg.APIVersion,
		baseURL:    cfg.BaseURL,
		logger:     log.WithFields(map[string]interface{}{"component": "catalog-client"}),
	}
}

// ResolveProductID maps an inventory item id to its owning product id via
// the item's first variant. Returns ("", nil) when the platform knows no
// such item.
func (c *Client) ResolveProductID(ctx context.Context, domain, token, inventoryItemID string) (string, error) {
	var result struct {
		InventoryItem *struct {
			Variant *struct {
				Product *struct {
					ID string `json:"id"`
				} `json:"product"`
			} `json:"variant"`
		} `json:"inventoryItem"`
	}

	gid := fmt.Sprintf("gid://shopify/InventoryItem/%s", inventoryItemID)
	if err := c.query(ctx, domain, token, inventoryItemQuery, map[string]interface{}{"id": gid}, &result); err != nil {
		return "", err
	}

	if result.InventoryItem == nil || result.InventoryItem.Variant == nil || result.InventoryItem.Variant.Product == nil {
		return "", nil
	}

	return extractNumericID(result.InventoryItem.Variant.Product.ID), nil
}

// GetProductOverview fetches product and shop metadata for notification
// rendering. Returns (nil, nil, nil) when the product does not exist.
func (c *Client) GetProductOverview(ctx context.Context, domain, token, productID string) (*models.ProductInfo, *models.ShopInfo, error) {
	var result struct {
		Product *struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			Handle        string `json:"handle"`
			FeaturedImage *struct {
				URL string `json:"url"`
			} `json:"featuredImage"`
			Variants struct {
				Nodes []struct {
					ID    string `json:"id"`
					Price string `json:"price"`
				} `json:"nodes"`
			} `json:"variants"`
		} `json:"product"`
		Shop *struct {
			Name          string `json:"name"`
			CurrencyCode  string `json:"currencyCode"`
			PrimaryDomain *struct {
				Host string `json:"host"`
			} `json:"primaryDomain"`
			Brand *struct {
				Logo *struct {
					Image *struct {
						URL string `json:"url"`
					} `json:"image"`
				} `json:"logo"`
			} `json:"brand"`
		} `json:"shop"`
	}

	gid := fmt.Sprintf("gid://shopify/Product/%s", productID)
	if err := c.query(ctx, domain, token, productOverviewQuery, map[string]interface{}{"id": gid}, &result); err != nil {
		return nil, nil, err
	}

	if result.Product == nil {
		return nil, nil, nil
	}

	product := &models.ProductInfo{
		ID:     extractNumericID(result.Product.ID),
		Title:  result.Product.Title,
		Handle: result.Product.Handle,
	}
	if result.Product.FeaturedImage != nil {
		product.ImageURL = result.Product.FeaturedImage.URL
	}
	if len(result.Product.Variants.Nodes) > 0 {
		product.VariantID = extractNumericID(result.Product.Variants.Nodes[0].ID)
		product.Price = result.Product.Variants.Nodes[0].Price
	}

	shop := &models.ShopInfo{Domain: domain}
	if result.Shop != nil {
		shop.Name = result.Shop.Name
		shop.Currency = result.Shop.CurrencyCode
		if result.Shop.PrimaryDomain != nil && result.Shop.PrimaryDomain.Host != "" {
			shop.Domain = result.Shop.PrimaryDomain.Host
		}
		if result.Shop.Brand != nil && result.Shop.Brand.Logo != nil && result.Shop.Brand.Logo.Image != nil {
			shop.LogoURL = result.Shop.Brand.Logo.Image.URL
		}
	}

	return product, shop, nil
}

// query posts one GraphQL request and decodes data into out.
func (c *Client) query(ctx context.Context, domain, token, gqlQuery string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query":     gqlQuery,
		"variables": variables,
	}
	headers := map[string]string{"X-Shopify-Access-Token": token}

	resp, err := c.httpClient.PostJSON(ctx, c.endpointFor(domain), headers, payload)
	if err != nil {
		return fmt.Errorf("graphql request to %s: %w", domain, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read graphql response: %w", err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("graphql request to %s: status %d", domain, resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode graphql envelope: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error from %s: %s", domain, envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("graphql response from %s has no data", domain)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) endpointFor(domain string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, c.apiVersion)
}

// extractNumericID strips a GID like gid://shopify/Product/12345 down to its
// trailing numeric id. Already-numeric ids pass through unchanged.
func extractNumericID(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}
