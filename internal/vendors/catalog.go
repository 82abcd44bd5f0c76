package vendors

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/osteele/liquid"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

var engine = liquid.NewEngine()

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type scriptTemplate struct {
	elementID *liquid.Template
	src       *liquid.Template
	body      *liquid.Template
	async     bool
}

// family is one integration type: how its ids look, which scripts and
// fallback image bootstrap it, and how its handle is built.
type family struct {
	typ       domain.IntegrationType
	idPattern *regexp.Regexp
	scripts   []scriptTemplate
	image     *liquid.Template
	handle    func(cfg domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle
}

func (f *family) Bootstrap(cfg domain.IntegrationConfig, sink tracking.CommandSink) (tracking.Bootstrap, error) {
	if !f.idPattern.MatchString(cfg.VendorID) {
		return tracking.Bootstrap{}, fmt.Errorf("%w: %s %q", ErrInvalidVendorID, f.typ, cfg.VendorID)
	}
	if cfg.ConversionLabel != "" && !labelPattern.MatchString(cfg.ConversionLabel) {
		return tracking.Bootstrap{}, fmt.Errorf("%w: %q", ErrInvalidLabel, cfg.ConversionLabel)
	}
	bindings := liquid.Bindings{"id": cfg.VendorID, "label": cfg.ConversionLabel}

	var boot tracking.Bootstrap
	for _, st := range f.scripts {
		var spec tracking.ScriptSpec
		var err error
		if spec.ElementID, err = render(st.elementID, bindings); err != nil {
			return tracking.Bootstrap{}, err
		}
		if spec.Src, err = render(st.src, bindings); err != nil {
			return tracking.Bootstrap{}, err
		}
		if spec.Inline, err = render(st.body, bindings); err != nil {
			return tracking.Bootstrap{}, err
		}
		spec.Async = st.async
		boot.Scripts = append(boot.Scripts, spec)
	}
	img, err := render(f.image, bindings)
	if err != nil {
		return tracking.Bootstrap{}, err
	}
	boot.FallbackImage = img
	if f.handle != nil {
		boot.Handle = f.handle(cfg, sink)
	}
	return boot, nil
}

func render(t *liquid.Template, b liquid.Bindings) (string, error) {
	if t == nil {
		return "", nil
	}
	out, err := t.RenderString(b)
	if err != nil {
		return "", fmt.Errorf("render snippet: %w", err)
	}
	return out, nil
}

func mustParse(src string) *liquid.Template {
	t, err := engine.ParseString(src)
	if err != nil {
		panic(fmt.Sprintf("vendors: parse snippet: %v", err))
	}
	return t
}

// Catalog is the set of supported integration families.
type Catalog struct {
	families map[domain.IntegrationType]*family
}

var _ tracking.VendorCatalog = (*Catalog)(nil)

// NewCatalog returns a catalog of every supported family.
func NewCatalog() *Catalog {
	c := &Catalog{families: make(map[domain.IntegrationType]*family)}
	for _, f := range []*family{
		{
			typ:       domain.IntegrationMetaPixel,
			idPattern: regexp.MustCompile(`^[0-9]{5,20}$`),
			scripts: []scriptTemplate{
				{elementID: mustParse("meta-pixel-loader"), body: mustParse(metaLoader)},
				{body: mustParse(metaInit)},
			},
			image:  mustParse(metaImage),
			handle: newMetaHandle,
		},
		{
			typ:       domain.IntegrationTikTokPixel,
			idPattern: regexp.MustCompile(`^[A-Z0-9]{8,32}$`),
			scripts: []scriptTemplate{
				{elementID: mustParse("tiktok-pixel-loader"), body: mustParse(tiktokLoader)},
				{body: mustParse(tiktokInit)},
			},
			handle: newTikTokHandle,
		},
		{
			typ:       domain.IntegrationGoogleAnalytics,
			idPattern: regexp.MustCompile(`^G-[A-Z0-9]{4,20}$`),
			scripts: []scriptTemplate{
				{elementID: mustParse("gtag-loader"), src: mustParse(gtagSrc), async: true},
				{body: mustParse(gtagInit)},
			},
			handle: newAnalyticsHandle,
		},
		{
			typ:       domain.IntegrationGoogleAds,
			idPattern: regexp.MustCompile(`^AW-[0-9]{5,15}$`),
			scripts: []scriptTemplate{
				{elementID: mustParse("gtag-loader"), src: mustParse(gtagSrc), async: true},
				{body: mustParse(gtagInit)},
			},
			handle: newAdsHandle,
		},
		{
			typ:       domain.IntegrationGoogleTagManager,
			idPattern: regexp.MustCompile(`^GTM-[A-Z0-9]{4,12}$`),
			scripts: []scriptTemplate{
				{elementID: mustParse("gtm-{{ id }}"), body: mustParse(gtmLoader)},
			},
		},
		{
			typ:       domain.IntegrationLinkedInInsight,
			idPattern: regexp.MustCompile(`^[0-9]{3,15}$`),
			scripts: []scriptTemplate{
				{body: mustParse(linkedinInit)},
				{elementID: mustParse("linkedin-insight-loader"), body: mustParse(linkedinLoader)},
			},
			image:  mustParse(linkedinImage),
			handle: newLinkedInHandle,
		},
	} {
		c.families[f.typ] = f
	}
	return c
}

// Vendor implements tracking.VendorCatalog.
func (c *Catalog) Vendor(t domain.IntegrationType) (tracking.Vendor, bool) {
	f, ok := c.families[t]
	if !ok {
		return nil, false
	}
	return f, true
}

// Types lists the supported integration types in name order.
func (c *Catalog) Types() []domain.IntegrationType {
	out := make([]domain.IntegrationType, 0, len(c.families))
	for t := range c.families {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
