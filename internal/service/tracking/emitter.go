package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/site-tracking/internal/domain"
)

// DefaultCurrency is reported to vendors when none is configured.
const DefaultCurrency = "USD"

// EventInput is what application code reports.
type EventInput struct {
	Type        domain.EventType       `json:"event_type"`
	Value       *float64               `json:"value,omitempty"`
	ContentName string                 `json:"content_name,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EmitReport describes what a TrackConversionEvent call managed to do.
type EmitReport struct {
	SessionID  string    `json:"session_id,omitempty"`
	VisitID    *string   `json:"visit_id,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	Attributed bool      `json:"attributed"`
	Recorded   bool      `json:"recorded"`
	Vendors    []string  `json:"vendors,omitempty"`
	DataLayer  bool      `json:"data_layer"`
	Outcomes   []Outcome `json:"outcomes,omitempty"`
}

// Emitter records conversion events and fans them out to vendors.
type Emitter struct {
	visits      VisitRepository
	events      EventRepository
	attribution *Attributor
	sink        EventSink
	currency    string
	now         func() time.Time
}

// NewEmitter wires an emitter. sink may be nil.
func NewEmitter(visits VisitRepository, events EventRepository, sink EventSink, currency string) *Emitter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Emitter{
		visits:      visits,
		events:      events,
		attribution: NewAttributor(visits),
		sink:        sink,
		currency:    currency,
		now:         time.Now,
	}
}

// TrackConversionEvent records in and notifies every vendor present on page.
//
// Steps run in order and each one is attempted regardless of earlier
// failures: read the session id, look up and (for purchases and leads)
// convert the session's latest visit, insert the event, call every vendor
// handle in the page registry, push onto the data layer. It never fails;
// the report says what happened.
func (e *Emitter) TrackConversionEvent(ctx context.Context, page *Page, in EventInput) (report EmitReport) {
	defer func() {
		if r := recover(); r != nil {
			tlog.Error("conversion tracking aborted", "event_type", in.Type, "panic", r)
		}
	}()
	if page == nil {
		page = &Page{}
	}

	sessionID, ok := page.Session.Current()
	var visit *domain.VisitRecord
	if ok {
		report.SessionID = sessionID
		report.add(attempt("lookup_visit", func() error {
			v, err := e.visits.LatestVisitBySession(ctx, sessionID)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup visit: %w", err)
			}
			visit = v
			return nil
		}))
	}
	if visit != nil {
		visitID := visit.ID
		report.VisitID = &visitID
		if in.Type.Qualifies() {
			out := attempt("attribute_visit", func() error {
				return e.attribution.MarkConverted(ctx, visitID, in.Value)
			})
			report.add(out)
			report.Attributed = out.OK
		}
	}

	evt := domain.ConversionEvent{
		EventType:   in.Type,
		Value:       in.Value,
		ContentName: in.ContentName,
		VisitID:     report.VisitID,
		Metadata:    in.Metadata,
		CreatedAt:   e.now().UTC(),
	}
	out := attempt("record_event", func() error {
		id, err := e.events.InsertEvent(ctx, &evt)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		evt.ID = id
		return nil
	})
	report.add(out)
	if out.OK {
		report.Recorded = true
		report.EventID = evt.ID
		if e.sink != nil {
			e.sink.Publish(ctx, evt)
		}
	}

	payload := Payload{
		EventType:   in.Type,
		Value:       in.Value,
		Currency:    e.currency,
		ContentName: in.ContentName,
	}
	for _, vendor := range page.Registry.Vendors() {
		h, _ := page.Registry.Lookup(vendor)
		out := attempt("fanout:"+string(vendor), func() error { return h.Track(payload) })
		report.add(out)
		if out.OK {
			report.Vendors = append(report.Vendors, string(vendor))
		}
	}

	out = attempt("data_layer", func() error { return page.PushDataLayer(e.dataLayerRecord(in)) })
	report.add(out)
	report.DataLayer = out.OK
	return report
}

// dataLayerRecord merges caller metadata under the normalized fields; the
// normalized fields win on key collisions.
func (e *Emitter) dataLayerRecord(in EventInput) map[string]interface{} {
	rec := make(map[string]interface{}, len(in.Metadata)+5)
	for k, v := range in.Metadata {
		rec[k] = v
	}
	rec["event"] = string(in.Type)
	rec["event_category"] = "conversion"
	rec["currency"] = e.currency
	if in.Value != nil {
		rec["value"] = *in.Value
	}
	if in.ContentName != "" {
		rec["content_name"] = in.ContentName
	}
	return rec
}

func (r *EmitReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}
