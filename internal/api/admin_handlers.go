package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/site-tracking/internal/pkg/httputil"
)

// requireAdmin rejects requests without the configured bearer token. With no
// token configured the admin routes are closed.
func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if h.opts.AdminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.opts.AdminToken)) != 1 {
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InvalidateCache handles POST /api/v1/admin/cache/invalidate so edits made
// in the admin show up before the cache TTL expires.
func (h *Handlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httputil.OK(w, map[string]bool{"invalidated": false})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		httputil.InternalError(w, err)
		return
	}
	alog.Info("config cache invalidated", "ip", r.RemoteAddr)
	httputil.OK(w, map[string]bool{"invalidated": true})
}
