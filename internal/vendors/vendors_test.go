package vendors_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/site-tracking/internal/dom"
	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
	"github.com/ignite/site-tracking/internal/vendors"
)

func bootstrap(t *testing.T, cfg domain.IntegrationConfig, sink tracking.CommandSink) tracking.Bootstrap {
	t.Helper()
	v, ok := vendors.NewCatalog().Vendor(cfg.Type)
	require.True(t, ok, cfg.Type)
	b, err := v.Bootstrap(cfg, sink)
	require.NoError(t, err)
	return b
}

func rendered(cmds *vendors.Commands) []string {
	var out []string
	for _, c := range cmds.Commands() {
		parts := []string{c.Fn}
		for _, a := range c.Args {
			parts = append(parts, string(a))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func TestCatalog_Types(t *testing.T) {
	assert.Equal(t, []domain.IntegrationType{
		domain.IntegrationGoogleAds,
		domain.IntegrationGoogleAnalytics,
		domain.IntegrationGoogleTagManager,
		domain.IntegrationLinkedInInsight,
		domain.IntegrationMetaPixel,
		domain.IntegrationTikTokPixel,
	}, vendors.NewCatalog().Types())

	_, ok := vendors.NewCatalog().Vendor("myspace")
	assert.False(t, ok)
}

func TestMetaBootstrap(t *testing.T) {
	b := bootstrap(t, domain.IntegrationConfig{Type: domain.IntegrationMetaPixel, VendorID: "1234567890"}, vendors.NewCommands())

	require.Len(t, b.Scripts, 2)
	assert.Equal(t, "meta-pixel-loader", b.Scripts[0].ElementID)
	assert.Contains(t, b.Scripts[0].Inline, "{if(f.fbq)return;")
	assert.Contains(t, b.Scripts[0].Inline, "https://connect.facebook.net/en_US/fbevents.js")
	assert.Equal(t, "fbq('init', '1234567890');\nfbq('track', 'PageView');", b.Scripts[1].Inline)
	assert.Equal(t, "https://www.facebook.com/tr?id=1234567890&ev=PageView&noscript=1", b.FallbackImage)
	assert.NotNil(t, b.Handle)
}

func TestBootstrap_RejectsBadIDs(t *testing.T) {
	cat := vendors.NewCatalog()
	cases := []domain.IntegrationConfig{
		{Type: domain.IntegrationMetaPixel, VendorID: "123');alert(1);//"},
		{Type: domain.IntegrationGoogleAnalytics, VendorID: "UA-1234-1"},
		{Type: domain.IntegrationGoogleAds, VendorID: "AW-12"},
		{Type: domain.IntegrationGoogleTagManager, VendorID: "gtm-abc"},
		{Type: domain.IntegrationLinkedInInsight, VendorID: "abc"},
		{Type: domain.IntegrationTikTokPixel, VendorID: "lower"},
	}
	for _, cfg := range cases {
		v, _ := cat.Vendor(cfg.Type)
		_, err := v.Bootstrap(cfg, nil)
		assert.ErrorIs(t, err, vendors.ErrInvalidVendorID, cfg.VendorID)
	}

	v, _ := cat.Vendor(domain.IntegrationGoogleAds)
	_, err := v.Bootstrap(domain.IntegrationConfig{Type: domain.IntegrationGoogleAds, VendorID: "AW-123456", ConversionLabel: "a b"}, nil)
	assert.ErrorIs(t, err, vendors.ErrInvalidLabel)
}

func TestGoogleBootstraps(t *testing.T) {
	ga := bootstrap(t, domain.IntegrationConfig{Type: domain.IntegrationGoogleAnalytics, VendorID: "G-ABC123"}, nil)
	require.Len(t, ga.Scripts, 2)
	assert.Equal(t, "gtag-loader", ga.Scripts[0].ElementID)
	assert.Equal(t, "https://www.googletagmanager.com/gtag/js?id=G-ABC123", ga.Scripts[0].Src)
	assert.True(t, ga.Scripts[0].Async)
	assert.Contains(t, ga.Scripts[1].Inline, "gtag('config', 'G-ABC123');")

	gtm := bootstrap(t, domain.IntegrationConfig{Type: domain.IntegrationGoogleTagManager, VendorID: "GTM-K9X2"}, nil)
	require.Len(t, gtm.Scripts, 1)
	assert.Equal(t, "gtm-GTM-K9X2", gtm.Scripts[0].ElementID)
	assert.Contains(t, gtm.Scripts[0].Inline, "})(window,document,'script','dataLayer','GTM-K9X2');")
	assert.Nil(t, gtm.Handle)
}

func TestLinkedInBootstrap(t *testing.T) {
	b := bootstrap(t, domain.IntegrationConfig{Type: domain.IntegrationLinkedInInsight, VendorID: "556677"}, nil)

	require.Len(t, b.Scripts, 2)
	assert.Contains(t, b.Scripts[0].Inline, `_linkedin_partner_id = "556677";`)
	assert.Equal(t, "linkedin-insight-loader", b.Scripts[1].ElementID)
	assert.Equal(t, "https://px.ads.linkedin.com/collect/?pid=556677&fmt=gif", b.FallbackImage)
}

func TestHandles(t *testing.T) {
	purchase := tracking.Payload{EventType: domain.EventPurchase, Value: floatPtr(49.99), Currency: "USD", ContentName: "audit"}
	click := tracking.Payload{EventType: domain.EventButtonClick, Currency: "USD"}

	cases := []struct {
		cfg  domain.IntegrationConfig
		want []string
	}{
		{
			cfg: domain.IntegrationConfig{Type: domain.IntegrationMetaPixel, VendorID: "12345"},
			want: []string{
				`fbq "track" "Purchase" {"content_name":"audit","currency":"USD","value":49.99}`,
				`fbq "trackCustom" "ButtonClick" {"currency":"USD"}`,
			},
		},
		{
			cfg: domain.IntegrationConfig{Type: domain.IntegrationTikTokPixel, VendorID: "C4ABCDEF12"},
			want: []string{
				`ttq.track "CompletePayment" {"content_name":"audit","currency":"USD","value":49.99}`,
				`ttq.track "ClickButton" {"currency":"USD"}`,
			},
		},
		{
			cfg: domain.IntegrationConfig{Type: domain.IntegrationGoogleAnalytics, VendorID: "G-ABC123"},
			want: []string{
				`gtag "event" "purchase" {"content_name":"audit","currency":"USD","value":49.99}`,
				`gtag "event" "button_click" {"currency":"USD"}`,
			},
		},
		{
			cfg: domain.IntegrationConfig{Type: domain.IntegrationGoogleAds, VendorID: "AW-123456", ConversionLabel: "AbC-9"},
			want: []string{
				`gtag "event" "conversion" {"currency":"USD","send_to":"AW-123456/AbC-9","value":49.99}`,
			},
		},
		{
			cfg:  domain.IntegrationConfig{Type: domain.IntegrationGoogleAds, VendorID: "AW-123456"},
			want: nil,
		},
		{
			cfg: domain.IntegrationConfig{Type: domain.IntegrationLinkedInInsight, VendorID: "556677", ConversionLabel: "998877"},
			want: []string{
				`lintrk "track" {"conversion_id":"998877"}`,
			},
		},
	}
	for _, tc := range cases {
		cmds := vendors.NewCommands()
		b := bootstrap(t, tc.cfg, cmds)
		require.NotNil(t, b.Handle, tc.cfg.Type)
		assert.NoError(t, b.Handle.Track(purchase))
		assert.NoError(t, b.Handle.Track(click))
		assert.Equal(t, tc.want, rendered(cmds), tc.cfg.Type)
	}
}

func TestHandle_NoSink(t *testing.T) {
	b := bootstrap(t, domain.IntegrationConfig{Type: domain.IntegrationMetaPixel, VendorID: "12345"}, nil)
	assert.ErrorIs(t, b.Handle.Track(tracking.Payload{EventType: domain.EventLead}), vendors.ErrNoCommandSink)
}

func TestCommands_Script(t *testing.T) {
	cmds := vendors.NewCommands()
	require.NoError(t, cmds.Call("fbq", "track", "Lead", map[string]interface{}{"content_name": "</script><b>"}))
	require.NoError(t, cmds.Call("dataLayer.push", map[string]interface{}{"event": "Lead"}))
	assert.ErrorIs(t, cmds.Call("alert(1);x", 1), vendors.ErrInvalidFunction)
	assert.Error(t, cmds.Call("fbq", make(chan int)))

	script := cmds.Script()
	lines := strings.Split(strings.TrimSpace(script), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "window.dataLayer=window.dataLayer||[];", lines[0])
	assert.Equal(t, `try{if(typeof window.fbq==="function"){window.fbq("track","Lead",{"content_name":"\u003c/script\u003e\u003cb\u003e"});}}catch(e){}`, lines[1])
	assert.Equal(t, `try{if(typeof window.dataLayer.push==="function"){window.dataLayer.push({"event":"Lead"});}}catch(e){}`, lines[2])
	assert.Equal(t, 2, cmds.Len())
	assert.Empty(t, vendors.NewCommands().Script())
}

func TestInjection_SharedGtagLoader(t *testing.T) {
	doc := dom.New(nil)
	fx := dom.NewEffects(doc)
	cmds := vendors.NewCommands()
	page := tracking.NewPage(domain.PageCheckout, nil, fx, cmds)
	inj := tracking.NewInjector(page, vendors.NewCatalog())

	report := inj.InjectAll([]domain.IntegrationConfig{
		{Type: domain.IntegrationGoogleAnalytics, VendorID: "G-ABC123", Enabled: true, Scopes: domain.AllPages()},
		{Type: domain.IntegrationGoogleAds, VendorID: "AW-123456", ConversionLabel: "lbl", Enabled: true, Scopes: domain.AllPages()},
		{Type: domain.IntegrationMetaPixel, VendorID: "bad id", Enabled: true, Scopes: domain.AllPages()},
		{Type: domain.IntegrationMetaPixel, VendorID: "12345", Enabled: true, Scopes: domain.AllPages()},
	})

	assert.Equal(t, []string{"google_analytics:G-ABC123", "google_ads:AW-123456", "meta_pixel:12345"}, report.Injected)
	assert.Contains(t, report.Failed, "meta_pixel:bad id")
	assert.Equal(t, 1, strings.Count(doc.HeadHTML(), `id="gtag-loader"`))
	assert.Equal(t, 2, fx.Count("google_analytics:G-ABC123"))
	assert.Equal(t, 1, fx.Count("google_ads:AW-123456"))
	assert.Contains(t, doc.BodyHTML(), "facebook.com/tr?id=12345")
	assert.Equal(t, []domain.IntegrationType{
		domain.IntegrationGoogleAds,
		domain.IntegrationGoogleAnalytics,
		domain.IntegrationMetaPixel,
	}, page.Registry.Vendors())
}
