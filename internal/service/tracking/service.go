package tracking

import (
	"context"
	"time"

	"github.com/ignite/site-tracking/internal/domain"
)

// Options tunes a Service.
type Options struct {
	// Currency reported to vendors with every event value. Defaults to USD.
	Currency string
	// Sink receives recorded events. Optional.
	Sink EventSink
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service is the entry point used by handlers: it mounts pages, captures
// campaign visits and tracks conversion events.
type Service struct {
	fetcher  *ConfigFetcher
	catalog  VendorCatalog
	capturer *VisitCapturer
	emitter  *Emitter
}

// NewService wires the pipeline over its repositories and vendor catalog.
func NewService(visits VisitRepository, events EventRepository, configs ConfigRepository, catalog VendorCatalog, opts Options) *Service {
	s := &Service{
		fetcher:  NewConfigFetcher(configs),
		catalog:  catalog,
		capturer: NewVisitCapturer(visits),
		emitter:  NewEmitter(visits, events, opts.Sink, opts.Currency),
	}
	if opts.Now != nil {
		s.capturer.now = opts.Now
		s.emitter.now = opts.Now
	}
	return s
}

// Mount runs the page-mount injection pass: page-scoped pixels, site-wide
// conversion settings, then header/footer marketing scripts. Running it again
// on the same page inserts nothing new.
func (s *Service) Mount(ctx context.Context, page *Page) InjectionReport {
	inj := NewInjector(page, s.catalog)

	cfgs := s.fetcher.EnabledIntegrations(ctx, page.Context)
	cfgs = append(cfgs, s.fetcher.ConversionSettings(ctx).Integrations()...)
	report := inj.InjectAll(cfgs)
	report.merge(inj.InjectScripts(s.fetcher.MarketingScripts(ctx)))

	tlog.Debug("page mounted", "page", page.Context, "injected", len(report.Injected), "failed", len(report.Failed))
	return report
}

// CaptureVisitIfCampaign see VisitCapturer.CaptureVisitIfCampaign.
func (s *Service) CaptureVisitIfCampaign(ctx context.Context, page *Page, view PageView) *domain.VisitRecord {
	return s.capturer.CaptureVisitIfCampaign(ctx, page, view)
}

// TrackConversionEvent see Emitter.TrackConversionEvent.
func (s *Service) TrackConversionEvent(ctx context.Context, page *Page, in EventInput) EmitReport {
	return s.emitter.TrackConversionEvent(ctx, page, in)
}
