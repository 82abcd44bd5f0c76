package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// ConfigRepo reads the admin-managed tracking configuration tables.
type ConfigRepo struct{ db *sql.DB }

// NewConfigRepo creates a Postgres-backed configuration repository.
func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{db: db} }

var _ tracking.ConfigRepository = (*ConfigRepo)(nil)

func (r *ConfigRepo) EnabledPixels(ctx context.Context) ([]domain.IntegrationConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pixel_type, pixel_id, COALESCE(conversion_label,''), enabled,
		       page_home, page_product, page_contact, page_checkout
		FROM tracking_pixels
		WHERE enabled = true
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tracking pixels: %w", err)
	}
	defer rows.Close()

	var out []domain.IntegrationConfig
	for rows.Next() {
		var c domain.IntegrationConfig
		if err := rows.Scan(&c.ID, &c.Type, &c.VendorID, &c.ConversionLabel, &c.Enabled,
			&c.Scopes.Home, &c.Scopes.Product, &c.Scopes.Contact, &c.Scopes.Checkout); err != nil {
			return nil, fmt.Errorf("scan tracking pixel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConfigRepo) EnabledMarketingScripts(ctx context.Context) ([]domain.MarketingScript, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, content, placement, enabled, sort_order
		FROM marketing_scripts
		WHERE enabled = true
		ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list marketing scripts: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketingScript
	for rows.Next() {
		var s domain.MarketingScript
		if err := rows.Scan(&s.ID, &s.Name, &s.Content, &s.Placement, &s.Enabled, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("scan marketing script: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ConfigRepo) ConversionSettings(ctx context.Context) (*domain.ConversionSettings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT platform, COALESCE(tracking_id,''), COALESCE(conversion_label,''), enabled
		FROM conversion_settings
		WHERE enabled = true
		ORDER BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("list conversion settings: %w", err)
	}
	defer rows.Close()

	s := &domain.ConversionSettings{}
	for rows.Next() {
		var p domain.PlatformSetting
		if err := rows.Scan(&p.Platform, &p.TrackingID, &p.ConversionLabel, &p.Enabled); err != nil {
			return nil, fmt.Errorf("scan conversion setting: %w", err)
		}
		s.Platforms = append(s.Platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversion settings: %w", err)
	}
	return s, nil
}
