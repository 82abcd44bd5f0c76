package vendors

import (
	"fmt"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// params is the normalized vendor payload: value, currency, content name.
func params(p tracking.Payload) map[string]interface{} {
	out := map[string]interface{}{"currency": p.Currency}
	if p.Value != nil {
		out["value"] = *p.Value
	}
	if p.ContentName != "" {
		out["content_name"] = p.ContentName
	}
	return out
}

func call(sink tracking.CommandSink, fn string, args ...interface{}) error {
	if sink == nil {
		return ErrNoCommandSink
	}
	return sink.Call(fn, args...)
}

func unsupported(vendor string, t domain.EventType) error {
	return fmt.Errorf("%w: %s %s", ErrUnsupportedEvent, vendor, t)
}

// Meta standard events; ButtonClick has no standard event and is sent
// through trackCustom.
var metaEvents = map[domain.EventType]string{
	domain.EventPageView:         "PageView",
	domain.EventLead:             "Lead",
	domain.EventPurchase:         "Purchase",
	domain.EventAddToCart:        "AddToCart",
	domain.EventInitiateCheckout: "InitiateCheckout",
	domain.EventContact:          "Contact",
}

type metaHandle struct{ sink tracking.CommandSink }

func newMetaHandle(_ domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle {
	return metaHandle{sink: sink}
}

func (h metaHandle) Track(p tracking.Payload) error {
	if name, ok := metaEvents[p.EventType]; ok {
		return call(h.sink, "fbq", "track", name, params(p))
	}
	return call(h.sink, "fbq", "trackCustom", string(p.EventType), params(p))
}

var tiktokEvents = map[domain.EventType]string{
	domain.EventPageView:         "ViewContent",
	domain.EventLead:             "SubmitForm",
	domain.EventPurchase:         "CompletePayment",
	domain.EventAddToCart:        "AddToCart",
	domain.EventInitiateCheckout: "InitiateCheckout",
	domain.EventContact:          "Contact",
	domain.EventButtonClick:      "ClickButton",
}

type tiktokHandle struct{ sink tracking.CommandSink }

func newTikTokHandle(_ domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle {
	return tiktokHandle{sink: sink}
}

func (h tiktokHandle) Track(p tracking.Payload) error {
	name, ok := tiktokEvents[p.EventType]
	if !ok {
		return unsupported("tiktok", p.EventType)
	}
	return call(h.sink, "ttq.track", name, params(p))
}

// GA4 recommended event names.
var analyticsEvents = map[domain.EventType]string{
	domain.EventPageView:         "page_view",
	domain.EventLead:             "generate_lead",
	domain.EventPurchase:         "purchase",
	domain.EventAddToCart:        "add_to_cart",
	domain.EventInitiateCheckout: "begin_checkout",
	domain.EventContact:          "contact",
	domain.EventButtonClick:      "button_click",
}

type analyticsHandle struct{ sink tracking.CommandSink }

func newAnalyticsHandle(_ domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle {
	return analyticsHandle{sink: sink}
}

func (h analyticsHandle) Track(p tracking.Payload) error {
	name, ok := analyticsEvents[p.EventType]
	if !ok {
		return unsupported("google_analytics", p.EventType)
	}
	return call(h.sink, "gtag", "event", name, params(p))
}

// adsHandle reports purchases and leads as Google Ads conversions. Without a
// conversion label there is nothing to send to.
type adsHandle struct {
	sink   tracking.CommandSink
	sendTo string
}

func newAdsHandle(cfg domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle {
	h := adsHandle{sink: sink}
	if cfg.ConversionLabel != "" {
		h.sendTo = cfg.VendorID + "/" + cfg.ConversionLabel
	}
	return h
}

func (h adsHandle) Track(p tracking.Payload) error {
	if !p.EventType.Qualifies() || h.sendTo == "" {
		return nil
	}
	args := params(p)
	args["send_to"] = h.sendTo
	delete(args, "content_name")
	return call(h.sink, "gtag", "event", "conversion", args)
}

// linkedinHandle fires the configured conversion for purchases and leads.
type linkedinHandle struct {
	sink         tracking.CommandSink
	conversionID string
}

func newLinkedInHandle(cfg domain.IntegrationConfig, sink tracking.CommandSink) tracking.Handle {
	return linkedinHandle{sink: sink, conversionID: cfg.ConversionLabel}
}

func (h linkedinHandle) Track(p tracking.Payload) error {
	if !p.EventType.Qualifies() || h.conversionID == "" {
		return nil
	}
	return call(h.sink, "lintrk", "track", map[string]interface{}{"conversion_id": h.conversionID})
}
