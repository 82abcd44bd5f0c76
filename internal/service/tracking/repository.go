package tracking

import (
	"context"

	"github.com/ignite/site-tracking/internal/domain"
)

// VisitRepository stores campaign visits.
// Implementations must be safe for concurrent use.
type VisitRepository interface {
	// CreateVisit inserts a visit and returns its ID.
	CreateVisit(ctx context.Context, v *domain.VisitRecord) (string, error)

	// LatestVisitBySession returns the most recently created visit for the
	// session. Returns ErrNotFound if there is none.
	LatestVisitBySession(ctx context.Context, sessionID string) (*domain.VisitRecord, error)

	// MarkConverted sets converted=true and the conversion value. Last write wins.
	MarkConverted(ctx context.Context, visitID string, value *float64) error
}

// EventRepository appends conversion events.
type EventRepository interface {
	// InsertEvent appends the event and returns its ID.
	InsertEvent(ctx context.Context, e *domain.ConversionEvent) (string, error)
}

// ConfigRepository reads the admin-managed integration configuration.
type ConfigRepository interface {
	// EnabledPixels returns page-scoped pixels with enabled = true.
	EnabledPixels(ctx context.Context) ([]domain.IntegrationConfig, error)

	// EnabledMarketingScripts returns header/footer blocks with enabled = true.
	EnabledMarketingScripts(ctx context.Context) ([]domain.MarketingScript, error)

	// ConversionSettings returns the per-platform conversion identifiers.
	ConversionSettings(ctx context.Context) (*domain.ConversionSettings, error)
}

// EventSink receives recorded events for downstream integrations
// (notifications, spreadsheet logging, archival). Publish must not block
// the caller on network I/O.
type EventSink interface {
	Publish(ctx context.Context, evt domain.ConversionEvent)
}
