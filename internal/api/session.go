package api

import (
	"net/http"

	"github.com/ignite/site-tracking/internal/service/tracking"
)

// SessionHeader carries the session id for clients that keep it in the
// browser's sessionStorage instead of a cookie.
const SessionHeader = "X-Session-Id"

// requestSession is the SessionStorage of one request: the session id comes
// from the X-Session-Id header, then the session cookie. A created id is
// written back as a session cookie (no Max-Age, so it ends with the browser
// session) and echoed in the X-Session-Id response header.
type requestSession struct {
	w      http.ResponseWriter
	r      *http.Request
	cookie string
	secure bool
	values map[string]string
}

var _ tracking.SessionStorage = (*requestSession)(nil)

func newRequestSession(w http.ResponseWriter, r *http.Request, cookie string, secure bool) *requestSession {
	return &requestSession{w: w, r: r, cookie: cookie, secure: secure, values: make(map[string]string)}
}

func (s *requestSession) Get(key string) (string, bool, error) {
	if v, ok := s.values[key]; ok {
		return v, true, nil
	}
	if key != tracking.SessionKey {
		return "", false, nil
	}
	if v := s.r.Header.Get(SessionHeader); v != "" {
		return v, true, nil
	}
	if c, err := s.r.Cookie(s.cookie); err == nil && c.Value != "" {
		return c.Value, true, nil
	}
	return "", false, nil
}

func (s *requestSession) Set(key, value string) error {
	s.values[key] = value
	if key != tracking.SessionKey {
		return nil
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.cookie,
		Value:    value,
		Path:     "/",
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.w.Header().Set(SessionHeader, value)
	return nil
}
