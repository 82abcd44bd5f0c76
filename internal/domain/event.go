package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// EventType enumerates the semantic business events the site reports.
type EventType string

const (
	EventPageView         EventType = "PageView"
	EventLead             EventType = "Lead"
	EventPurchase         EventType = "Purchase"
	EventAddToCart        EventType = "AddToCart"
	EventInitiateCheckout EventType = "InitiateCheckout"
	EventContact          EventType = "Contact"
	EventButtonClick      EventType = "ButtonClick"
)

var eventTypes = map[EventType]bool{
	EventPageView:         true,
	EventLead:             true,
	EventPurchase:         true,
	EventAddToCart:        true,
	EventInitiateCheckout: true,
	EventContact:          true,
	EventButtonClick:      true,
}

// ParseEventType accepts "Purchase", "purchase", "add_to_cart",
// "initiate-checkout", "button click" or "pageview" and returns the canonical
// type. Separators are dropped and the rest is matched without regard to case.
func ParseEventType(s string) (EventType, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(fields) == 0 {
		return "", fmt.Errorf("empty event type")
	}
	fold := cases.Fold()
	key := fold.String(strings.Join(fields, ""))
	for et := range eventTypes {
		if fold.String(string(et)) == key {
			return et, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Qualifies reports whether the event marks the originating visit converted.
func (t EventType) Qualifies() bool {
	return t == EventPurchase || t == EventLead
}

// ConversionEvent is one recorded business event. Append-only.
type ConversionEvent struct {
	ID          string                 `json:"id" db:"id"`
	EventType   EventType              `json:"event_type" db:"event_type"`
	Value       *float64               `json:"event_value,omitempty" db:"event_value"`
	ContentName string                 `json:"content_name,omitempty" db:"content_name"`
	VisitID     *string                `json:"utm_visit_id,omitempty" db:"utm_visit_id"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}
