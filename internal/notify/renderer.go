// internal/notify/renderer.go
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"restock-dispatcher/internal/models"
)

// placeholderImage is substituted when a product has no featured image or a
// shop has no logo.
const placeholderImage = "https://cdn.shopify.com/s/images/admin/no-image-large.gif"

const restockTemplateHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;background:#f6f6f7;font-family:Helvetica,Arial,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
        <tr><td align="center" style="padding:24px 24px 8px;">
          <img src="{{.ShopLogo}}" alt="{{.ShopName}}" height="48" style="display:block;">
        </td></tr>
        <tr><td align="center" style="padding:8px 24px;">
          <h1 style="margin:0;font-size:22px;color:#202223;">Good news &mdash; it&rsquo;s back!</h1>
          <p style="margin:8px 0 0;font-size:15px;color:#6d7175;">{{.ProductTitle}} is back in stock at {{.ShopName}}.</p>
        </td></tr>
        <tr><td align="center" style="padding:16px 24px;">
          <img src="{{.ProductImage}}" alt="{{.ProductTitle}}" width="280" style="display:block;border-radius:4px;">
        </td></tr>
        {{if .Price}}
        <tr><td align="center" style="padding:0 24px;">
          <p style="margin:0;font-size:18px;color:#202223;font-weight:bold;">{{.Price}}{{if .Currency}} {{.Currency}}{{end}}</p>
        </td></tr>
        {{end}}
        <tr><td align="center" style="padding:24px;">
          {{if .CartURL}}
          <a href="{{.CartURL}}" style="display:inline-block;padding:12px 28px;background:#008060;color:#ffffff;text-decoration:none;border-radius:4px;font-size:15px;">Add to cart</a>
          {{end}}
          {{if .ProductURL}}
          <a href="{{.ProductURL}}" style="display:inline-block;padding:12px 28px;margin-left:8px;color:#008060;text-decoration:none;font-size:15px;">View item</a>
          {{end}}
        </td></tr>
        <tr><td align="center" style="padding:0 24px 24px;">
          <p style="margin:0;font-size:12px;color:#8c9196;">You received this email because you asked to be notified when this item is restocked.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const minimalTemplateHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:24px;font-family:Helvetica,Arial,sans-serif;color:#202223;">
  <h2 style="margin:0 0 12px;">An item you follow is back in stock</h2>
  <p style="margin:0 0 4px;">Inventory item: {{.InventoryItemID}}</p>
  <p style="margin:0;">Now available: {{.Available}}</p>
</body>
</html>`

var (
	restockTemplate = template.Must(template.New("restock").Parse(restockTemplateHTML))
	minimalTemplate = template.Must(template.New("minimal").Parse(minimalTemplateHTML))
)

// Renderer builds subscriber-facing notification content. It is a pure
// function of its inputs and never fails on missing optional metadata.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

type restockTemplateData struct {
	ShopName     string
	ShopLogo     string
	ProductTitle string
	ProductImage string
	Price        string
	Currency     string
	CartURL      string
	ProductURL   string
}

// RenderRestock builds the full notification from product and shop
// metadata. Missing logo or image falls back to a placeholder; absent
// variant or handle simply omits the matching call-to-action.
func (r *Renderer) RenderRestock(shop *models.ShopInfo, product *models.ProductInfo) *models.EmailContent {
	data := restockTemplateData{
		ShopName:     shop.Name,
		ShopLogo:     shop.LogoURL,
		ProductTitle: product.Title,
		ProductImage: product.ImageURL,
		Price:        product.Price,
		Currency:     shop.Currency,
	}

	if data.ShopName == "" {
		data.ShopName = shop.Domain
	}
	if data.ShopLogo == "" {
		data.ShopLogo = placeholderImage
	}
	if data.ProductImage == "" {
		data.ProductImage = placeholderImage
	}
	if data.ProductTitle == "" {
		data.ProductTitle = "Your item"
	}

	domain := strings.TrimSuffix(shop.Domain, "/")
	if domain != "" && product.VariantID != "" {
		data.CartURL = fmt.Sprintf("https://%s/cart/%s:1", domain, product.VariantID)
	}
	if domain != "" && product.Handle != "" {
		data.ProductURL = fmt.Sprintf("https://%s/products/%s", domain, product.Handle)
	}

	var buf bytes.Buffer
	// The template only fails on type mismatches, which the fixed data
	// struct rules out.
	_ = restockTemplate.Execute(&buf, data)

	return &models.EmailContent{
		Subject:  fmt.Sprintf("%s is back in stock at %s", data.ProductTitle, data.ShopName),
		HTMLBody: buf.String(),
	}
}

// RenderMinimal builds a degraded notification when no product metadata
// could be fetched, so the subscriber still hears about the restock.
func (r *Renderer) RenderMinimal(event *models.RestockEvent) *models.EmailContent {
	var buf bytes.Buffer
	_ = minimalTemplate.Execute(&buf, struct {
		InventoryItemID string
		Available       int
	}{event.InventoryItemID, event.Available})

	subject := "An item you follow is back in stock"
	if event.SourceDomain != "" {
		subject = fmt.Sprintf("An item you follow is back in stock at %s", event.SourceDomain)
	}

	return &models.EmailContent{
		Subject:  subject,
		HTMLBody: buf.String(),
	}
}
