package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/site-tracking/internal/domain"
)

// PageView describes the request that loaded a page.
type PageView struct {
	URL       string `json:"url"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ParseCampaign extracts the UTM parameters and the path of a page URL.
func ParseCampaign(rawURL string) (domain.CampaignParams, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.CampaignParams{}, "", fmt.Errorf("parse page url: %w", err)
	}
	q := u.Query()
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }
	params := domain.CampaignParams{
		Source:   get("utm_source"),
		Medium:   get("utm_medium"),
		Campaign: get("utm_campaign"),
		Term:     get("utm_term"),
		Content:  get("utm_content"),
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return params, path, nil
}

// VisitCapturer records campaign arrivals.
type VisitCapturer struct {
	visits VisitRepository
	now    func() time.Time
}

// NewVisitCapturer creates a capturer backed by visits.
func NewVisitCapturer(visits VisitRepository) *VisitCapturer {
	return &VisitCapturer{visits: visits, now: time.Now}
}

// CaptureVisitIfCampaign records a VisitRecord when the page URL carries a
// UTM source, medium or campaign. It resolves (creating if needed) the
// page's session id first. Errors are logged and swallowed; the created
// record is returned for callers that want to report it, nil otherwise.
func (c *VisitCapturer) CaptureVisitIfCampaign(ctx context.Context, page *Page, view PageView) *domain.VisitRecord {
	if page == nil || page.Session == nil {
		tlog.Warn("visit capture skipped", "err", "page has no session resolver")
		return nil
	}
	params, path, err := ParseCampaign(view.URL)
	if err != nil {
		tlog.Warn("visit capture skipped", "err", err)
		return nil
	}
	if !params.IsCampaign() {
		return nil
	}

	visit := &domain.VisitRecord{
		SessionID:   page.Session.Resolve(),
		UTMSource:   params.Source,
		UTMMedium:   params.Medium,
		UTMCampaign: params.Campaign,
		UTMTerm:     params.Term,
		UTMContent:  params.Content,
		PagePath:    path,
		Referrer:    view.Referrer,
		UserAgent:   view.UserAgent,
		CreatedAt:   c.now().UTC(),
	}

	out := attempt("capture_visit", func() error {
		id, err := c.visits.CreateVisit(ctx, visit)
		if err != nil {
			return fmt.Errorf("create visit: %w", err)
		}
		visit.ID = id
		return nil
	})
	if !out.OK {
		return nil
	}
	tlog.Info("campaign visit captured", "visit_id", visit.ID, "utm_source", visit.UTMSource, "utm_campaign", visit.UTMCampaign)
	return visit
}
