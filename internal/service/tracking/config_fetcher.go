package tracking

import (
	"context"
	"sort"

	"github.com/ignite/site-tracking/internal/domain"
)

// ConfigFetcher reads which integrations are enabled. Every read fails open
// to "inject nothing": page stability wins over tracking completeness.
type ConfigFetcher struct {
	repo ConfigRepository
}

// NewConfigFetcher creates a fetcher over repo.
func NewConfigFetcher(repo ConfigRepository) *ConfigFetcher {
	return &ConfigFetcher{repo: repo}
}

// EnabledIntegrations returns the enabled pixels whose scope includes pc.
func (f *ConfigFetcher) EnabledIntegrations(ctx context.Context, pc domain.PageContext) []domain.IntegrationConfig {
	cfgs, err := f.repo.EnabledPixels(ctx)
	if err != nil {
		tlog.Warn("tracking pixel fetch failed", "page", pc, "err", err)
		return nil
	}
	out := make([]domain.IntegrationConfig, 0, len(cfgs))
	for _, c := range cfgs {
		if c.AppliesTo(pc) {
			out = append(out, c)
		}
	}
	return out
}

// MarketingScripts returns the enabled header/footer blocks in sort order.
func (f *ConfigFetcher) MarketingScripts(ctx context.Context) []domain.MarketingScript {
	scripts, err := f.repo.EnabledMarketingScripts(ctx)
	if err != nil {
		tlog.Warn("marketing script fetch failed", "err", err)
		return nil
	}
	out := make([]domain.MarketingScript, 0, len(scripts))
	for _, s := range scripts {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// ConversionSettings returns the platform settings, or nil on any error.
func (f *ConfigFetcher) ConversionSettings(ctx context.Context) *domain.ConversionSettings {
	s, err := f.repo.ConversionSettings(ctx)
	if err != nil {
		tlog.Warn("conversion settings fetch failed", "err", err)
		return nil
	}
	return s
}
