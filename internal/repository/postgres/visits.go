package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// VisitRepo implements tracking.VisitRepository against PostgreSQL.
type VisitRepo struct{ db *sql.DB }

// NewVisitRepo creates a Postgres-backed visit repository.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

var _ tracking.VisitRepository = (*VisitRepo)(nil)

func (r *VisitRepo) CreateVisit(ctx context.Context, v *domain.VisitRecord) (string, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO utm_visits
			(id, session_id, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			 page_path, referrer, user_agent, created_at)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),$8,NULLIF($9,''),NULLIF($10,''),$11)
	`, v.ID, v.SessionID, v.UTMSource, v.UTMMedium, v.UTMCampaign, v.UTMTerm, v.UTMContent,
		v.PagePath, v.Referrer, v.UserAgent, v.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert visit: %w", err)
	}
	return v.ID, nil
}

func (r *VisitRepo) LatestVisitBySession(ctx context.Context, sessionID string) (*domain.VisitRecord, error) {
	v := &domain.VisitRecord{}
	var value sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, COALESCE(utm_source,''), COALESCE(utm_medium,''),
		       COALESCE(utm_campaign,''), COALESCE(utm_term,''), COALESCE(utm_content,''),
		       page_path, COALESCE(referrer,''), COALESCE(user_agent,''),
		       converted, conversion_value, created_at
		FROM utm_visits
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionID).Scan(
		&v.ID, &v.SessionID, &v.UTMSource, &v.UTMMedium,
		&v.UTMCampaign, &v.UTMTerm, &v.UTMContent,
		&v.PagePath, &v.Referrer, &v.UserAgent,
		&v.Converted, &value, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest visit: %w", err)
	}
	if value.Valid {
		f := value.Float64
		v.ConversionValue = &f
	}
	return v, nil
}

// MarkConverted is a plain update; concurrent conversions overwrite each other.
func (r *VisitRepo) MarkConverted(ctx context.Context, visitID string, value *float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE utm_visits SET converted = true, conversion_value = $2 WHERE id = $1
	`, visitID, nullFloat(value))
	if err != nil {
		return fmt.Errorf("mark visit converted: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tracking.ErrNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
