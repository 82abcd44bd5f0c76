package tracking_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

var errBoom = errors.New("boom")

// memRepo is an in-memory implementation of the three repositories.
type memRepo struct {
	mu      sync.Mutex
	visits  []*domain.VisitRecord
	events  []*domain.ConversionEvent
	pixels  []domain.IntegrationConfig
	scripts []domain.MarketingScript
	convs   *domain.ConversionSettings

	visitErr  error
	lookupErr error
	markErr   error
	eventErr  error
	configErr error
	seq       int
}

func newMemRepo() *memRepo { return &memRepo{} }

func (m *memRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memRepo) CreateVisit(_ context.Context, v *domain.VisitRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visitErr != nil {
		return "", m.visitErr
	}
	cp := *v
	cp.ID = m.nextID("visit")
	m.visits = append(m.visits, &cp)
	return cp.ID, nil
}

func (m *memRepo) LatestVisitBySession(_ context.Context, sessionID string) (*domain.VisitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for i := len(m.visits) - 1; i >= 0; i-- {
		if m.visits[i].SessionID == sessionID {
			cp := *m.visits[i]
			return &cp, nil
		}
	}
	return nil, tracking.ErrNotFound
}

func (m *memRepo) MarkConverted(_ context.Context, visitID string, value *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	for _, v := range m.visits {
		if v.ID == visitID {
			v.Converted = true
			v.ConversionValue = value
			return nil
		}
	}
	return tracking.ErrNotFound
}

func (m *memRepo) InsertEvent(_ context.Context, e *domain.ConversionEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventErr != nil {
		return "", m.eventErr
	}
	cp := *e
	cp.ID = m.nextID("event")
	m.events = append(m.events, &cp)
	return cp.ID, nil
}

func (m *memRepo) EnabledPixels(context.Context) ([]domain.IntegrationConfig, error) {
	if m.configErr != nil {
		return nil, m.configErr
	}
	var out []domain.IntegrationConfig
	for _, p := range m.pixels {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) EnabledMarketingScripts(context.Context) ([]domain.MarketingScript, error) {
	if m.configErr != nil {
		return nil, m.configErr
	}
	return m.scripts, nil
}

func (m *memRepo) ConversionSettings(context.Context) (*domain.ConversionSettings, error) {
	if m.configErr != nil {
		return nil, m.configErr
	}
	return m.convs, nil
}

func (m *memRepo) visit(id string) *domain.VisitRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visits {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// fakeEffects records document mutations by integration identity.
type fakeEffects struct {
	ids     map[string]bool
	nodes   map[string]int
	images  []string
	blocks  map[domain.Placement][]string
	failFor string
}

func newFakeEffects() *fakeEffects {
	return &fakeEffects{
		ids:    make(map[string]bool),
		nodes:  make(map[string]int),
		blocks: make(map[domain.Placement][]string),
	}
}

func (f *fakeEffects) HasElement(id string) bool { return f.ids[id] }

func (f *fakeEffects) AppendScript(_ domain.Placement, s tracking.ScriptSpec) error {
	if s.Identity == f.failFor {
		return errBoom
	}
	if s.ElementID != "" {
		f.ids[s.ElementID] = true
	}
	f.nodes[s.Identity]++
	return nil
}

func (f *fakeEffects) AppendFallbackImage(identity, _ string) error {
	f.images = append(f.images, identity)
	f.nodes[identity]++
	return nil
}

func (f *fakeEffects) AppendRawBlock(target domain.Placement, identity, markup string) error {
	if identity == f.failFor {
		return errBoom
	}
	f.blocks[target] = append(f.blocks[target], markup)
	f.nodes[identity]++
	return nil
}

// recorder is both a CommandSink and the trail of vendor Track calls.
type recorder struct {
	calls  []string
	pushes []map[string]interface{}
	err    error
}

func (r *recorder) Call(fn string, args ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, fn)
	if fn == "dataLayer.push" && len(args) == 1 {
		if rec, ok := args[0].(map[string]interface{}); ok {
			r.pushes = append(r.pushes, rec)
		}
	}
	return nil
}

type fakeHandle struct {
	vendor string
	sink   tracking.CommandSink
	seen   *[]tracking.Payload
	err    error
}

func (h fakeHandle) Track(p tracking.Payload) error {
	if h.err != nil {
		return h.err
	}
	*h.seen = append(*h.seen, p)
	return h.sink.Call(h.vendor, "track", string(p.EventType))
}

// fakeVendor bootstraps one loader script per integration type.
type fakeVendor struct {
	name      string
	panics    bool
	trackErr  error
	image     bool
	seen      []tracking.Payload
	bootstrap int
}

func (v *fakeVendor) Bootstrap(cfg domain.IntegrationConfig, sink tracking.CommandSink) (tracking.Bootstrap, error) {
	if v.panics {
		panic("vendor snippet exploded")
	}
	v.bootstrap++
	b := tracking.Bootstrap{
		Scripts: []tracking.ScriptSpec{
			{ElementID: v.name + "-loader", Src: "https://cdn.example/" + v.name + ".js", Async: true},
			{Inline: v.name + "('init','" + cfg.VendorID + "');"},
		},
		Handle: fakeHandle{vendor: v.name, sink: sink, seen: &v.seen, err: v.trackErr},
	}
	if v.image {
		b.FallbackImage = "https://px.example/" + cfg.VendorID
	}
	return b, nil
}

type fakeCatalog map[domain.IntegrationType]tracking.Vendor

func (c fakeCatalog) Vendor(t domain.IntegrationType) (tracking.Vendor, bool) {
	v, ok := c[t]
	return v, ok
}

func pixel(t domain.IntegrationType, id string, scopes domain.PageScopes) domain.IntegrationConfig {
	return domain.IntegrationConfig{ID: string(t) + "-" + id, Type: t, VendorID: id, Enabled: true, Scopes: scopes}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
