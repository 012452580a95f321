// internal/notify/subscriber.go
package notify

import (
	"context"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"
)

// MetadataAPI fetches the product/shop metadata used for rendering.
type MetadataAPI interface {
	GetProductOverview(ctx context.Context, domain, token, productID string) (*models.ProductInfo, *models.ShopInfo, error)
}

// SubscriberNotifier renders notification content once per event and sends
// it to each matched subscriber.
type SubscriberNotifier struct {
	catalog   MetadataAPI
	renderer  *Renderer
	mailer    Mailer
	fromEmail string
	logger    logger.Logger
}

func NewSubscriberNotifier(catalog MetadataAPI, renderer *Renderer, mailer Mailer, fromEmail string, log logger.Logger) *SubscriberNotifier {
	return &SubscriberNotifier{
		catalog:   catalog,
		renderer:  renderer,
		mailer:    mailer,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"component": "subscriber-notifier"}),
	}
}

// PrepareContent builds the email once for the whole fan-out round. When
// metadata cannot be fetched the content degrades to the minimal rendering;
// this method never fails.
func (n *SubscriberNotifier) PrepareContent(ctx context.Context, event *models.RestockEvent) *models.EmailContent {
	if event.ProductID == "" || event.AccessToken == "" {
		return n.renderer.RenderMinimal(event)
	}

	product, shop, err := n.catalog.GetProductOverview(ctx, event.SourceDomain, event.AccessToken, event.ProductID)
	if err != nil {
		n.logger.WithError(err).Warn("product metadata fetch failed, using minimal content", map[string]interface{}{
			"productId": event.ProductID,
			"domain":    event.SourceDomain,
		})
		return n.renderer.RenderMinimal(event)
	}
	if product == nil {
		n.logger.Warn("product metadata missing, using minimal content", map[string]interface{}{
			"productId": event.ProductID,
		})
		return n.renderer.RenderMinimal(event)
	}
	if shop == nil {
		shop = &models.ShopInfo{Domain: event.SourceDomain}
	}

	return n.renderer.RenderRestock(shop, product)
}

// Send delivers the rendered content to one subscriber.
func (n *SubscriberNotifier) Send(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
	return n.mailer.Send(ctx, Message{
		To:      job.RecipientEmail,
		From:    n.fromEmail,
		Subject: content.Subject,
		Body:    content.HTMLBody,
		IsHTML:  true,
	})
}
