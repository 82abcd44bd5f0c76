package sink

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/ignite/site-tracking/internal/config"
	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/httpretry"
)

// NewNotifiers builds the notifiers enabled in cfg. A notifier is enabled by
// its destination being set: lead_email.enabled, a sheets webhook URL, an
// archive bucket.
func NewNotifiers(awsCfg aws.Config, cfg config.NotifyConfig) ([]Notifier, error) {
	var out []Notifier

	if cfg.LeadEmail.Enabled {
		events := make([]domain.EventType, 0, len(cfg.LeadEmail.Events))
		for _, name := range cfg.LeadEmail.Events {
			et, err := domain.ParseEventType(name)
			if err != nil {
				return nil, fmt.Errorf("notify.lead_email.events: %w", err)
			}
			events = append(events, et)
		}
		mailer, err := NewLeadMailer(sesv2.NewFromConfig(awsCfg), MailConfig{
			From:   cfg.LeadEmail.From,
			To:     cfg.LeadEmail.To,
			Events: events,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, mailer)
	}

	if cfg.Sheets.WebhookURL != "" {
		client := httpretry.New(nil, httpretry.Options{MaxRetries: cfg.Sheets.MaxRetries})
		out = append(out, NewSheetsLogger(client, cfg.Sheets.WebhookURL))
	}

	if cfg.Archive.Bucket != "" {
		out = append(out, NewArchiver(s3.NewFromConfig(awsCfg), cfg.Archive.Bucket, cfg.Archive.Prefix))
	}

	return out, nil
}
