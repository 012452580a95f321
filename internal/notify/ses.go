// internal/notify/ses.go
package notify

import (
	"context"

	"restock-dispatcher/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES API the mailer needs, split out for
// mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends mail through AWS SES. Selected by mail.provider: "ses".
type SESMailer struct {
	client SESService
	logger logger.Logger
}

func NewSESMailer(ctx context.Context, region string, log logger.Logger) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESMailer{
		client: ses.NewFromConfig(cfg),
		logger: log.WithFields(map[string]interface{}{"component": "ses-mailer"}),
	}, nil
}

// NewSESMailerWithClient wires an existing SES client; used by tests.
func NewSESMailerWithClient(client SESService, log logger.Logger) *SESMailer {
	return &SESMailer{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "ses-mailer"}),
	}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	content := &types.Content{Data: aws.String(msg.Body)}
	body := &types.Body{}
	if msg.IsHTML {
		body.Html = content
	} else {
		body.Text = content
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
	})
	return err
}
