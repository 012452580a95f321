// internal/notify/fallback.go
package notify

import (
	"context"
	"fmt"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSService is the slice of the SNS API the fallback needs, split out for
// mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// FallbackConfig holds operator alert settings.
type FallbackConfig struct {
	OperationalRecipient string
	FromEmail            string
	SNSTopicARN          string
}

// Fallback sends the operator-facing alert when the primary subscriber
// notification cannot happen. It is a best-effort diagnostic: every failure
// inside it is logged and swallowed, and a missing recipient short-circuits
// with a warning.
type Fallback struct {
	config    FallbackConfig
	mailer    Mailer
	snsClient SNSService // nil when SNS alerts are disabled
	logger    logger.Logger
}

func NewFallback(cfg FallbackConfig, mailer Mailer, snsClient SNSService, log logger.Logger) *Fallback {
	return &Fallback{
		config:    cfg,
		mailer:    mailer,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "fallback-notifier"}),
	}
}

func (f *Fallback) Notify(ctx context.Context, event *models.RestockEvent, reason string) {
	body := fmt.Sprintf(
		"Restock event could not be delivered to subscribers.\n\n"+
			"Reason: %s\n"+
			"Inventory item: %s\n"+
			"Available: %d\n"+
			"Source domain: %s\n"+
			"Resolved product: %s\n",
		reason, event.InventoryItemID, event.Available, event.SourceDomain, orDash(event.ProductID),
	)
	subject := fmt.Sprintf("Restock alert: item %s (%s)", event.InventoryItemID, reason)

	f.sendEmail(ctx, subject, body)
	f.publishSNS(ctx, subject, body)
}

func (f *Fallback) sendEmail(ctx context.Context, subject, body string) {
	if f.config.OperationalRecipient == "" {
		f.logger.Warn("operational recipient not configured, skipping fallback email", nil)
		return
	}

	err := f.mailer.Send(ctx, Message{
		To:      f.config.OperationalRecipient,
		From:    f.config.FromEmail,
		Subject: subject,
		Body:    body,
		IsHTML:  false,
	})
	if err != nil {
		f.logger.WithError(err).Error("fallback email failed", map[string]interface{}{
			"recipient": f.config.OperationalRecipient,
		})
	}
}

func (f *Fallback) publishSNS(ctx context.Context, subject, body string) {
	if f.snsClient == nil || f.config.SNSTopicARN == "" {
		return
	}

	_, err := f.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(f.config.SNSTopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	if err != nil {
		f.logger.WithError(err).Error("fallback SNS publish failed", map[string]interface{}{
			"topicArn": f.config.SNSTopicARN,
		})
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
