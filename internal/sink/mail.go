package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/ignite/site-tracking/internal/domain"
)

// SESAPI is the part of *sesv2.Client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

const leadSubject = `New {{ event_type }}{% if content_name != "" %}: {{ content_name }}{% endif %}`

const leadBody = `<h2>New {{ event_type }} on the website</h2>
<table>
<tr><td>When</td><td>{{ created_at }}</td></tr>
{% if content_name != "" %}<tr><td>Item</td><td>{{ content_name | escape }}</td></tr>
{% endif %}{% if value != "" %}<tr><td>Value</td><td>{{ value }}</td></tr>
{% endif %}{% if visit_id != "" %}<tr><td>Campaign visit</td><td>{{ visit_id }}</td></tr>
{% endif %}{% for field in fields %}<tr><td>{{ field.key | escape }}</td><td>{{ field.value | escape }}</td></tr>
{% endfor %}</table>`

// MailConfig configures lead notification e-mails.
type MailConfig struct {
	From string
	To   []string
	// Events that trigger a mail. Defaults to Lead and Contact.
	Events []domain.EventType
}

// LeadMailer e-mails the team when a lead or contact event is recorded.
type LeadMailer struct {
	client  SESAPI
	cfg     MailConfig
	events  map[domain.EventType]bool
	subject *liquid.Template
	body    *liquid.Template
}

var _ Notifier = (*LeadMailer)(nil)

// NewLeadMailer parses the mail templates.
func NewLeadMailer(client SESAPI, cfg MailConfig) (*LeadMailer, error) {
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("lead mailer: from and to are required")
	}
	engine := liquid.NewEngine()
	subject, err := engine.ParseString(leadSubject)
	if err != nil {
		return nil, fmt.Errorf("parse lead subject: %w", err)
	}
	body, err := engine.ParseString(leadBody)
	if err != nil {
		return nil, fmt.Errorf("parse lead body: %w", err)
	}
	events := cfg.Events
	if len(events) == 0 {
		events = []domain.EventType{domain.EventLead, domain.EventContact}
	}
	m := &LeadMailer{client: client, cfg: cfg, events: make(map[domain.EventType]bool), subject: subject, body: body}
	for _, e := range events {
		m.events[e] = true
	}
	return m, nil
}

func (m *LeadMailer) Name() string { return "lead_email" }

func (m *LeadMailer) Notify(ctx context.Context, evt domain.ConversionEvent) error {
	if !m.events[evt.EventType] {
		return nil
	}
	subject, body, err := m.Render(evt)
	if err != nil {
		return err
	}
	_, err = m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.cfg.From),
		Destination:      &types.Destination{ToAddresses: m.cfg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("event_type"), Value: aws.String(string(evt.EventType))},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	sinkLog.Info("lead mail sent", "event_id", evt.ID, "event_type", evt.EventType)
	return nil
}

// Render returns the subject and HTML body for evt.
func (m *LeadMailer) Render(evt domain.ConversionEvent) (string, string, error) {
	b := bindings(evt)
	subject, err := m.subject.RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("render lead subject: %w", err)
	}
	body, err := m.body.RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("render lead body: %w", err)
	}
	return strings.TrimSpace(subject), body, nil
}

func bindings(evt domain.ConversionEvent) liquid.Bindings {
	b := liquid.Bindings{
		"event_type":   string(evt.EventType),
		"content_name": evt.ContentName,
		"created_at":   evt.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		"value":        "",
		"visit_id":     "",
	}
	if evt.Value != nil {
		b["value"] = fmt.Sprintf("%.2f", *evt.Value)
	}
	if evt.VisitID != nil {
		b["visit_id"] = *evt.VisitID
	}
	keys := sortedKeys(evt.Metadata)
	fields := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, map[string]string{"key": k, "value": fmt.Sprint(evt.Metadata[k])})
	}
	b["fields"] = fields
	return b
}
