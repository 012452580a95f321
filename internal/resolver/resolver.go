// internal/resolver/resolver.go
package resolver

import (
	"context"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"
)

// CatalogAPI is the single catalog operation the resolver needs.
type CatalogAPI interface {
	ResolveProductID(ctx context.Context, domain, token, inventoryItemID string) (string, error)
}

// Resolver maps an inventory item id to a product id using the shop's
// stored credential. Every failure mode degrades to an unresolved event;
// the webhook response is never at stake here.
type Resolver struct {
	credentials models.CredentialStore
	catalog     CatalogAPI
	logger      logger.Logger
}

func New(credentials models.CredentialStore, catalog CatalogAPI, log logger.Logger) *Resolver {
	return &Resolver{
		credentials: credentials,
		catalog:     catalog,
		logger:      log.WithFields(map[string]interface{}{"component": "product-resolver"}),
	}
}

// Resolve fills event.ProductID and event.AccessToken, returning true when
// a product id was obtained. The credential is fetched fresh per event and
// only borrowed for the lifetime of this request.
func (r *Resolver) Resolve(ctx context.Context, event *models.RestockEvent) bool {
	// Upstream payloads occasionally carry the product id directly.
	if event.ProductID != "" {
		return true
	}

	if event.SourceDomain == "" {
		r.logger.Warn("event has no source domain, cannot resolve", map[string]interface{}{
			"inventoryItemId": event.InventoryItemID,
		})
		return false
	}

	cred, err := r.credentials.FindByDomain(ctx, event.SourceDomain)
	if err != nil {
		r.logger.WithError(err).Error("credential lookup failed", map[string]interface{}{
			"domain": event.SourceDomain,
		})
		return false
	}
	if cred == nil {
		r.logger.Warn("no stored credential for domain", map[string]interface{}{
			"domain": event.SourceDomain,
		})
		return false
	}

	productID, err := r.catalog.ResolveProductID(ctx, event.SourceDomain, cred.AccessToken, event.InventoryItemID)
	if err != nil {
		r.logger.WithError(err).Error("catalog resolution failed", map[string]interface{}{
			"domain":          event.SourceDomain,
			"inventoryItemId": event.InventoryItemID,
		})
		return false
	}
	if productID == "" {
		r.logger.Warn("inventory item has no owning product", map[string]interface{}{
			"domain":          event.SourceDomain,
			"inventoryItemId": event.InventoryItemID,
		})
		return false
	}

	event.ProductID = productID
	event.AccessToken = cred.AccessToken
	return true
}
