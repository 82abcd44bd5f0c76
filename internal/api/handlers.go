package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/site-tracking/internal/dom"
	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/httputil"
	"github.com/ignite/site-tracking/internal/pkg/logger"
	"github.com/ignite/site-tracking/internal/service/tracking"
	"github.com/ignite/site-tracking/internal/vendors"
)

var alog = logger.Component("api")

// TrackingService is the pipeline the handlers drive.
type TrackingService interface {
	Mount(ctx context.Context, page *tracking.Page) tracking.InjectionReport
	CaptureVisitIfCampaign(ctx context.Context, page *tracking.Page, view tracking.PageView) *domain.VisitRecord
	TrackConversionEvent(ctx context.Context, page *tracking.Page, in tracking.EventInput) tracking.EmitReport
}

// CacheInvalidator drops cached integration configuration.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Options configures the handlers.
type Options struct {
	SessionCookie  string
	SecureCookie   bool
	AdminToken     string
	AllowedOrigins []string
}

// Handlers holds the HTTP handlers of the tracking API.
type Handlers struct {
	svc    TrackingService
	cache  CacheInvalidator
	health *HealthChecker
	opts   Options
}

// NewHandlers creates the handlers. cache and health may be nil.
func NewHandlers(svc TrackingService, cache CacheInvalidator, health *HealthChecker, opts Options) *Handlers {
	if opts.SessionCookie == "" {
		opts.SessionCookie = tracking.SessionKey
	}
	return &Handlers{svc: svc, cache: cache, health: health, opts: opts}
}

// pageState is everything one request needs to run the pipeline against a
// document.
type pageState struct {
	page     *tracking.Page
	doc      *dom.Document
	commands *vendors.Commands
	session  *requestSession
}

func (h *Handlers) newPage(w http.ResponseWriter, r *http.Request, pc domain.PageContext, doc *dom.Document) *pageState {
	if doc == nil {
		doc = dom.New(nil)
	}
	cmds := vendors.NewCommands()
	sess := newRequestSession(w, r, h.opts.SessionCookie, h.opts.SecureCookie)
	return &pageState{
		page:     tracking.NewPage(pc, sess, dom.NewEffects(doc), cmds),
		doc:      doc,
		commands: cmds,
		session:  sess,
	}
}

// pageParam resolves the {page} URL parameter, writing a 404 when it names
// no known page.
func pageParam(w http.ResponseWriter, r *http.Request) (domain.PageContext, bool) {
	pc, err := domain.ParsePageContext(chi.URLParam(r, "page"))
	if err != nil {
		httputil.NotFound(w, err.Error())
		return "", false
	}
	return pc, true
}

// parsePageOrHome parses an optional page name, defaulting to the home page.
func parsePageOrHome(s string) (domain.PageContext, error) {
	if s == "" {
		return domain.PageHome, nil
	}
	return domain.ParsePageContext(s)
}
