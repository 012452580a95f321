package models

// ProductInfo is the sellable-product metadata used to render a
// notification. Optional fields (image, handle, variant) may be empty.
type ProductInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Handle    string `json:"handle,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Price     string `json:"price,omitempty"`
	VariantID string `json:"variantId,omitempty"`
}

// ShopInfo is the shop-level metadata used to render a notification.
type ShopInfo struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	LogoURL  string `json:"logoUrl,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// EmailContent is a rendered notification, produced once per event and
// reused for every matched subscriber.
type EmailContent struct {
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}
