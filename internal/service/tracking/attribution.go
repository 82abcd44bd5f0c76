package tracking

import (
	"context"
	"errors"
)

// Attributor marks campaign visits converted.
type Attributor struct {
	visits VisitRepository
}

// NewAttributor creates an attributor backed by visits.
func NewAttributor(visits VisitRepository) *Attributor {
	return &Attributor{visits: visits}
}

// MarkConverted sets converted=true and the conversion value on the visit.
// There is no read-modify-write protection: the last conversion wins.
func (a *Attributor) MarkConverted(ctx context.Context, visitID string, value *float64) error {
	if visitID == "" {
		return errors.New("visit id is required")
	}
	return a.visits.MarkConverted(ctx, visitID, value)
}
