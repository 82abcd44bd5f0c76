package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/ignite/site-tracking/internal/dom"
	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/httputil"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

// maxPageBytes caps pages posted to the render endpoint.
const maxPageBytes = 2 << 20

type visitRequest struct {
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Page      string `json:"page"`
}

type visitResponse struct {
	SessionID string              `json:"session_id,omitempty"`
	Captured  bool                `json:"captured"`
	Visit     *domain.VisitRecord `json:"visit,omitempty"`
}

// CaptureVisit handles POST /api/v1/visits.
func (h *Handlers) CaptureVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if !httputil.Decode(w, r, &req, false) {
		return
	}
	if req.URL == "" {
		httputil.BadRequest(w, "url is required")
		return
	}
	pc, err := parsePageOrHome(req.Page)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}

	ps := h.newPage(w, r, pc, nil)
	visit := h.svc.CaptureVisitIfCampaign(r.Context(), ps.page, tracking.PageView{
		URL:       req.URL,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
	})
	resp := visitResponse{Captured: visit != nil, Visit: visit}
	resp.SessionID, _ = ps.page.Session.Current()
	if visit != nil {
		httputil.Created(w, resp)
		return
	}
	httputil.OK(w, resp)
}

type tagsResponse struct {
	Page     domain.PageContext `json:"page"`
	Head     string             `json:"head"`
	Body     string             `json:"body"`
	Injected []string           `json:"injected"`
	Skipped  []string           `json:"skipped,omitempty"`
	Failed   map[string]string  `json:"failed,omitempty"`
	Script   string             `json:"script,omitempty"`
}

// GetTags handles GET /api/v1/tags/{page}: it mounts the page's integrations
// on an empty document and returns the resulting head and body markup.
func (h *Handlers) GetTags(w http.ResponseWriter, r *http.Request) {
	pc, ok := pageParam(w, r)
	if !ok {
		return
	}
	ps := h.newPage(w, r, pc, nil)
	report := h.svc.Mount(r.Context(), ps.page)

	injected := report.Injected
	if injected == nil {
		injected = []string{}
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.OK(w, tagsResponse{
		Page:     pc,
		Head:     ps.doc.HeadHTML(),
		Body:     ps.doc.BodyHTML(),
		Injected: injected,
		Skipped:  report.Skipped,
		Failed:   report.Failed,
		Script:   ps.commands.Script(),
	})
}

// RenderPage handles POST /api/v1/pages/{page}/render: the posted HTML page
// comes back with the page's integrations injected.
func (h *Handlers) RenderPage(w http.ResponseWriter, r *http.Request) {
	pc, ok := pageParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPageBytes))
	if err != nil {
		httputil.BadRequest(w, "page too large or unreadable")
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		httputil.BadRequest(w, "empty page")
		return
	}
	doc, err := dom.Parse(bytes.NewReader(body), nil)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	ps := h.newPage(w, r, pc, doc)
	// A page rendered earlier already carries its integrations.
	for _, id := range doc.Identities() {
		ps.page.Injected.Add(id)
	}
	report := h.svc.Mount(r.Context(), ps.page)

	var out bytes.Buffer
	if err := doc.Render(&out); err != nil {
		httputil.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Injected-Count", strconv.Itoa(len(report.Injected)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Bytes()); err != nil {
		alog.Warn("render write failed", "err", err)
	}
}

type eventRequest struct {
	Page        string                 `json:"page"`
	EventType   string                 `json:"event_type"`
	Value       *float64               `json:"value"`
	ContentName string                 `json:"content_name"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type eventResponse struct {
	tracking.EmitReport
	Script string `json:"script"`
}

// TrackEvent handles POST /api/v1/events. The vendor integrations of the
// page are mounted on a scratch document so their handles are registered;
// the queued vendor calls come back as a script for the browser to run.
// Tracking failures are reported in the body, never in the status.
func (h *Handlers) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !httputil.Decode(w, r, &req, false) {
		return
	}
	in, pc, ok := eventInput(w, req)
	if !ok {
		return
	}

	ps := h.newPage(w, r, pc, nil)
	h.svc.Mount(r.Context(), ps.page)
	report := h.svc.TrackConversionEvent(r.Context(), ps.page, in)

	httputil.Accepted(w, eventResponse{EmitReport: report, Script: ps.commands.Script()})
}

// TrackBeacon handles GET /api/v1/events/beacon, the image-pixel fallback
// for clients without script. It always answers with a transparent GIF.
func (h *Handlers) TrackBeacon(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := eventRequest{
		Page:        q.Get("page"),
		EventType:   q.Get("event_type"),
		ContentName: q.Get("content_name"),
	}
	if v := q.Get("value"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.Value = &f
		}
	}

	if in, pc, ok := beaconInput(req); ok {
		ps := h.newPage(w, r, pc, nil)
		in.Metadata = map[string]interface{}{"source": "beacon"}
		h.svc.TrackConversionEvent(r.Context(), ps.page, in)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(transparentGIF)
}

func eventInput(w http.ResponseWriter, req eventRequest) (tracking.EventInput, domain.PageContext, bool) {
	et, err := domain.ParseEventType(req.EventType)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return tracking.EventInput{}, "", false
	}
	pc, err := parsePageOrHome(req.Page)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return tracking.EventInput{}, "", false
	}
	return tracking.EventInput{
		Type:        et,
		Value:       req.Value,
		ContentName: req.ContentName,
		Metadata:    req.Metadata,
	}, pc, true
}

func beaconInput(req eventRequest) (tracking.EventInput, domain.PageContext, bool) {
	et, err := domain.ParseEventType(req.EventType)
	if err != nil {
		return tracking.EventInput{}, "", false
	}
	pc, err := parsePageOrHome(req.Page)
	if err != nil {
		return tracking.EventInput{}, "", false
	}
	return tracking.EventInput{Type: et, Value: req.Value, ContentName: req.ContentName}, pc, true
}

var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}
