package domain

import "fmt"

// IntegrationType enumerates the supported tracking integration families.
type IntegrationType string

const (
	IntegrationMetaPixel        IntegrationType = "meta_pixel"
	IntegrationTikTokPixel      IntegrationType = "tiktok_pixel"
	IntegrationGoogleAnalytics  IntegrationType = "google_analytics"
	IntegrationGoogleAds        IntegrationType = "google_ads"
	IntegrationGoogleTagManager IntegrationType = "google_tag_manager"
	IntegrationLinkedInInsight  IntegrationType = "linkedin_insight"
)

// PageContext identifies which kind of page is being rendered.
type PageContext string

const (
	PageHome     PageContext = "home"
	PageProduct  PageContext = "product"
	PageContact  PageContext = "contact"
	PageCheckout PageContext = "checkout"
)

// AllPageContexts lists every page context in a stable order.
var AllPageContexts = []PageContext{PageHome, PageProduct, PageContact, PageCheckout}

// ParsePageContext validates a page context name.
func ParsePageContext(s string) (PageContext, error) {
	for _, pc := range AllPageContexts {
		if string(pc) == s {
			return pc, nil
		}
	}
	return "", fmt.Errorf("unknown page context %q", s)
}

// PageScopes holds the per-page enablement flags of a page-scoped pixel.
type PageScopes struct {
	Home     bool `json:"home" db:"page_home"`
	Product  bool `json:"product" db:"page_product"`
	Contact  bool `json:"contact" db:"page_contact"`
	Checkout bool `json:"checkout" db:"page_checkout"`
}

// AllPages returns scopes enabled on every page context.
func AllPages() PageScopes {
	return PageScopes{Home: true, Product: true, Contact: true, Checkout: true}
}

// Includes reports whether the scope flag for pc is set.
func (s PageScopes) Includes(pc PageContext) bool {
	switch pc {
	case PageHome:
		return s.Home
	case PageProduct:
		return s.Product
	case PageContact:
		return s.Contact
	case PageCheckout:
		return s.Checkout
	}
	return false
}

// IntegrationConfig is one vendor's tracking capability as configured by an
// administrator. Read-only from the tracking pipeline's perspective.
type IntegrationConfig struct {
	ID       string          `json:"id,omitempty" db:"id"`
	Type     IntegrationType `json:"type" db:"pixel_type"`
	VendorID string          `json:"vendor_id" db:"pixel_id"`
	// ConversionLabel is the ads conversion label / conversion id used by
	// vendors that report conversions against a specific action.
	ConversionLabel string     `json:"conversion_label,omitempty" db:"conversion_label"`
	Enabled         bool       `json:"enabled" db:"enabled"`
	Scopes          PageScopes `json:"scopes"`
}

// Identity is the injection key of the integration: type + ":" + vendor id.
func (c IntegrationConfig) Identity() string {
	return string(c.Type) + ":" + c.VendorID
}

// AppliesTo reports whether the integration may be injected on pc.
func (c IntegrationConfig) AppliesTo(pc PageContext) bool {
	return c.Enabled && c.Scopes.Includes(pc)
}

// Placement is where an admin-authored marketing script is inserted.
type Placement string

const (
	PlacementHeader Placement = "header"
	PlacementFooter Placement = "footer"
)

// MarketingScript is an admin-authored raw HTML/script block placed in the
// document head (header) or at the end of the body (footer).
type MarketingScript struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Content   string    `json:"content" db:"content"`
	Placement Placement `json:"placement" db:"placement"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
}

// Identity is the injection key of the script block.
func (s MarketingScript) Identity() string {
	return "script:" + s.ID
}

// PlatformSetting is one row of the per-platform conversion settings.
type PlatformSetting struct {
	Platform        IntegrationType `json:"platform" db:"platform"`
	TrackingID      string          `json:"tracking_id" db:"tracking_id"`
	ConversionLabel string          `json:"conversion_label,omitempty" db:"conversion_label"`
	Enabled         bool            `json:"enabled" db:"enabled"`
}

// ConversionSettings holds the site-wide pixel/ads/conversion identifiers.
type ConversionSettings struct {
	Platforms []PlatformSetting `json:"platforms"`
}

// Integrations converts enabled platform rows into site-wide integrations.
// Rows without a tracking id are skipped.
func (s *ConversionSettings) Integrations() []IntegrationConfig {
	if s == nil {
		return nil
	}
	var out []IntegrationConfig
	for _, p := range s.Platforms {
		if !p.Enabled || p.TrackingID == "" {
			continue
		}
		out = append(out, IntegrationConfig{
			Type:            p.Platform,
			VendorID:        p.TrackingID,
			ConversionLabel: p.ConversionLabel,
			Enabled:         true,
			Scopes:          AllPages(),
		})
	}
	return out
}
