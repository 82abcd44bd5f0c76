package sink

import (
	"context"
	"fmt"
	"sort"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/httpretry"
)

// SheetsLogger appends one spreadsheet row per event by posting it to a
// spreadsheet webhook (an Apps Script or automation endpoint).
type SheetsLogger struct {
	client *httpretry.Client
	url    string
}

var _ Notifier = (*SheetsLogger)(nil)

// NewSheetsLogger posts rows to url through client.
func NewSheetsLogger(client *httpretry.Client, url string) *SheetsLogger {
	return &SheetsLogger{client: client, url: url}
}

func (s *SheetsLogger) Name() string { return "sheets" }

// SheetRow is the webhook payload.
type SheetRow struct {
	EventID     string            `json:"event_id"`
	Timestamp   string            `json:"timestamp"`
	EventType   string            `json:"event_type"`
	Value       *float64          `json:"value"`
	ContentName string            `json:"content_name"`
	VisitID     string            `json:"visit_id"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func (s *SheetsLogger) Notify(ctx context.Context, evt domain.ConversionEvent) error {
	row := SheetRow{
		EventID:     evt.ID,
		Timestamp:   evt.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		EventType:   string(evt.EventType),
		Value:       evt.Value,
		ContentName: evt.ContentName,
	}
	if evt.VisitID != nil {
		row.VisitID = *evt.VisitID
	}
	if len(evt.Metadata) > 0 {
		row.Fields = make(map[string]string, len(evt.Metadata))
		for k, v := range evt.Metadata {
			row.Fields[k] = fmt.Sprint(v)
		}
	}
	if err := s.client.PostJSON(ctx, s.url, row); err != nil {
		return fmt.Errorf("sheets webhook: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
