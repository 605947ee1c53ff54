package ssrf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"gatekeep/internal/models"
)

// hop-by-hop and connection-level headers never forwarded from callers.
var skippedHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"host":                true,
	"content-length":      true,
}

// Client performs guarded outbound requests. Redirects are followed manually
// so each hop passes ValidateURL before any connection is attempted to it.
type Client struct {
	httpClient *http.Client
	cfg        models.EgressConfig
}

// NewClient creates a guarded fetch client bounded by the egress config.
func NewClient(cfg models.EgressConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			// Redirects are validated and re-issued by Fetch itself.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg: cfg,
	}
}

// FetchOptions are per-request overrides. Overrides may tighten the
// configured bounds but never exceed them.
type FetchOptions struct {
	Method       string
	Headers      map[string]string
	MaxRedirects *int
	MaxBytes     *int64
	Timeout      time.Duration
}

// Result is the outcome of a completed guarded fetch.
type Result struct {
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Truncated  bool
	Redirects  int
	Duration   time.Duration
}

// Fetch validates raw, performs the request, and follows up to the redirect
// budget with every hop re-validated. The response size ceiling is checked
// against the Content-Length header only; a server that lies about its
// length is caught by body truncation, not by an error. All guard failures
// return *Error; transport failures return ordinary wrapped errors.
func (c *Client) Fetch(ctx context.Context, raw string, opts FetchOptions) (*Result, error) {
	maxRedirects := c.cfg.MaxRedirects
	if opts.MaxRedirects != nil && *opts.MaxRedirects < maxRedirects {
		maxRedirects = *opts.MaxRedirects
	}

	maxBytes := c.cfg.MaxResponseBytes
	if opts.MaxBytes != nil && *opts.MaxBytes < maxBytes {
		maxBytes = *opts.MaxBytes
	}

	timeout := c.cfg.Timeout
	if opts.Timeout > 0 && opts.Timeout < timeout {
		timeout = opts.Timeout
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	target := raw
	redirects := 0

	for {
		u, err := ValidateURL(target)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, newInvalidURLError(target, err)
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}
		for k, v := range opts.Headers {
			if skippedHeaders[strings.ToLower(k)] {
				continue
			}
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, newTimeoutError(err)
			}
			return nil, fmt.Errorf("request to %s failed: %w", u.Hostname(), err)
		}

		if isRedirect(resp.StatusCode) {
			resp.Body.Close()

			location := resp.Header.Get("Location")
			if location == "" {
				return nil, newMissingLocationError()
			}

			redirects++
			if redirects > maxRedirects {
				return nil, newTooManyRedirectsError(maxRedirects)
			}

			next, err := u.Parse(location)
			if err != nil {
				return nil, newInvalidURLError(location, err)
			}
			target = next.String()
			continue
		}

		if resp.ContentLength > maxBytes {
			resp.Body.Close()
			return nil, newResponseTooLargeError(resp.ContentLength, maxBytes)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
		resp.Body.Close()
		if err != nil {
			if isTimeout(err) {
				return nil, newTimeoutError(err)
			}
			return nil, fmt.Errorf("reading response from %s failed: %w", u.Hostname(), err)
		}

		truncated := false
		if int64(len(body)) > maxBytes {
			body = body[:maxBytes]
			truncated = true
		}

		return &Result{
			FinalURL:   u.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Truncated:  truncated,
			Redirects:  redirects,
			Duration:   time.Since(start),
		}, nil
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
