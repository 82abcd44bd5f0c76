package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// EventRepo implements tracking.EventRepository. conversion_events is
// append-only; there is no update or delete.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

var _ tracking.EventRepository = (*EventRepo)(nil)

func (r *EventRepo) InsertEvent(ctx context.Context, e *domain.ConversionEvent) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return "", fmt.Errorf("encode event metadata: %w", err)
		}
		meta = b
	}
	var visitID sql.NullString
	if e.VisitID != nil {
		visitID = sql.NullString{String: *e.VisitID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversion_events
			(id, event_type, event_value, content_name, utm_visit_id, metadata, created_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)
	`, e.ID, string(e.EventType), nullFloat(e.Value), e.ContentName, visitID, meta, e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert conversion event: %w", err)
	}
	return e.ID, nil
}
