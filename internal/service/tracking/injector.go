package tracking

import (
	"fmt"

	"github.com/ignite/site-tracking/internal/domain"
)

// InjectionReport summarises one injection pass.
type InjectionReport struct {
	Injected []string          `json:"injected"`
	Skipped  []string          `json:"skipped,omitempty"`
	Failed   map[string]string `json:"failed,omitempty"`
}

func (r *InjectionReport) fail(identity string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[identity] = err.Error()
}

func (r *InjectionReport) merge(o InjectionReport) {
	r.Injected = append(r.Injected, o.Injected...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	for k, v := range o.Failed {
		if r.Failed == nil {
			r.Failed = make(map[string]string)
		}
		r.Failed[k] = v
	}
}

// Injector performs the one-time document side effects of each integration
// on a page.
type Injector struct {
	page    *Page
	catalog VendorCatalog
}

// NewInjector binds an injector to page.
func NewInjector(page *Page, catalog VendorCatalog) *Injector {
	return &Injector{page: page, catalog: catalog}
}

// InjectIntegration inserts the vendor bootstrap for cfg unless identity has
// already been injected on this page. It reports whether anything was
// inserted. Panics inside vendor code are returned as errors.
func (in *Injector) InjectIntegration(identity string, cfg domain.IntegrationConfig) (injected bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			injected, err = false, fmt.Errorf("%w: %s: %v", ErrInjectionPanic, identity, r)
		}
	}()

	if !cfg.Enabled {
		return false, ErrDisabled
	}
	if !cfg.AppliesTo(in.page.Context) {
		return false, ErrOutOfScope
	}
	if in.page.Injected.Has(identity) {
		return false, nil
	}
	vendor, ok := in.catalog.Vendor(cfg.Type)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownVendor, cfg.Type)
	}
	boot, err := vendor.Bootstrap(cfg, in.page.Commands)
	if err != nil {
		return false, fmt.Errorf("bootstrap %s: %w", identity, err)
	}

	// Claimed before touching the document so a partial failure is never
	// retried into duplicate nodes.
	in.page.Injected.Add(identity)

	for _, s := range boot.Scripts {
		if s.ElementID != "" && in.page.Effects.HasElement(s.ElementID) {
			continue
		}
		s.Identity = identity
		if err := in.page.Effects.AppendScript(domain.PlacementHeader, s); err != nil {
			return false, fmt.Errorf("append script %s: %w", identity, err)
		}
	}
	if boot.FallbackImage != "" {
		if err := in.page.Effects.AppendFallbackImage(identity, boot.FallbackImage); err != nil {
			return false, fmt.Errorf("append fallback image %s: %w", identity, err)
		}
	}
	if boot.Handle != nil {
		in.page.Registry.Register(cfg.Type, boot.Handle)
	}
	return true, nil
}

// InjectAll runs InjectIntegration over cfgs. Integrations that are disabled
// or scoped away from the page are skipped; a failing integration never
// stops the rest of the batch.
func (in *Injector) InjectAll(cfgs []domain.IntegrationConfig) InjectionReport {
	var report InjectionReport
	for _, cfg := range cfgs {
		identity := cfg.Identity()
		if !cfg.Enabled || !cfg.Scopes.Includes(in.page.Context) {
			report.Skipped = append(report.Skipped, identity)
			continue
		}
		ok, err := in.InjectIntegration(identity, cfg)
		switch {
		case err != nil:
			tlog.Warn("integration injection failed", "identity", identity, "err", err)
			report.fail(identity, err)
		case ok:
			report.Injected = append(report.Injected, identity)
		default:
			report.Skipped = append(report.Skipped, identity)
		}
	}
	return report
}

// InjectScripts inserts admin-authored marketing blocks, header blocks into
// the head and footer blocks at the end of the body, each at most once.
func (in *Injector) InjectScripts(scripts []domain.MarketingScript) InjectionReport {
	var report InjectionReport
	for _, s := range scripts {
		identity := s.Identity()
		if !s.Enabled || in.page.Injected.Has(identity) {
			report.Skipped = append(report.Skipped, identity)
			continue
		}
		out := attempt("inject_script", func() error {
			if s.Placement != domain.PlacementHeader && s.Placement != domain.PlacementFooter {
				return fmt.Errorf("%w: %q", ErrUnknownPlacement, s.Placement)
			}
			in.page.Injected.Add(identity)
			return in.page.Effects.AppendRawBlock(s.Placement, identity, s.Content)
		})
		if out.OK {
			report.Injected = append(report.Injected, identity)
		} else {
			report.fail(identity, out.Err)
		}
	}
	return report
}
