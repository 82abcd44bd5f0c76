// Package httpretry sends outbound webhook requests with retries,
// exponential backoff and full jitter.
package httpretry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/site-tracking/internal/pkg/logger"
)

var rlog = logger.Component("httpretry")

// Doer executes HTTP requests. *http.Client and *Client both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. Zero values pick the defaults.
type Options struct {
	MaxRetries int           // retries after the first attempt, default 3
	BaseDelay  time.Duration // default 500ms
	MaxDelay   time.Duration // default 10s
	Timeout    time.Duration // per attempt when Doer is nil, default 10s
}

// Client retries 429 and 5xx responses and transport errors. Client errors
// and context cancellation are returned immediately.
type Client struct {
	doer Doer
	opts Options
}

// New wraps doer. A nil doer uses an http.Client with opts.Timeout.
func New(doer Doer, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{doer: doer, opts: opts}
}

// Do executes req, retrying as described on Client. The last response is
// returned as-is when retries run out so the caller can inspect it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset body: %w", err)
				}
				req.Body = body
			}
			delay := c.backoff(attempt)
			rlog.Debug("retrying request", "attempt", attempt, "host", req.URL.Host, "path", req.URL.Path, "delay", delay.String())
			if err := sleep(req.Context(), delay); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		} else if err := req.Context().Err(); err != nil {
			return nil, err
		}

		resp, err := c.doer.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !Retryable(resp.StatusCode) || attempt == c.opts.MaxRetries {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: retryable status %d", resp.StatusCode)
	}
	return nil, lastErr
}

// PostJSON posts v as JSON to url and fails on any non-2xx final status.
func (c *Client) PostJSON(ctx context.Context, url string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("httpretry: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpretry: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// StatusError is returned by PostJSON for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpretry: status %d: %s", e.Code, e.Body)
}

// backoff is full jitter over min(MaxDelay, BaseDelay*2^(attempt-1)).
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.opts.BaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(c.opts.MaxDelay) {
		d = float64(c.opts.MaxDelay)
	}
	return time.Duration(rand.Float64() * d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retryable reports whether status is worth retrying.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
