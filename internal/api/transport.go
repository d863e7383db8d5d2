package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/muurk/mastertherm/internal/logging"
)

// Request describes one backend call. Adapters fill these in; the transport
// owns encoding, base URL, headers, and auth decoration.
type Request struct {
	// Method is the HTTP method
	Method string

	// Path is the endpoint path below the backend base URL
	Path string

	// Query holds URL query parameters (v2 endpoints)
	Query url.Values

	// Form holds a form-encoded POST body (v1 endpoints, both logins)
	Form url.Values

	// Authenticated marks requests that need session auth decoration
	Authenticated bool
}

// Response is a completed 2xx exchange: the raw JSON body plus whatever
// cookies the backend set (the v1 login delivers its session that way).
type Response struct {
	StatusCode int
	Body       []byte
	Cookies    []*http.Cookie
}

// Transport issues HTTP calls against one backend generation. It applies the
// version's base URL and auth style, classifies failures into the transport
// taxonomy, and meters v2 traffic through the spacing gate.
type Transport struct {
	version Version
	baseURL string
	client  *http.Client
	gate    *spacingGate
}

// NewTransport creates a transport for the given backend generation with the
// vendor base URL, the default timeout, and (for v2) the default request
// spacing.
func NewTransport(version Version) *Transport {
	t := &Transport{
		version: version,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	switch version {
	case V2:
		t.baseURL = DefaultBaseURLV2
		t.gate = newSpacingGate(DefaultRequestSpacing)
	default:
		t.baseURL = DefaultBaseURLV1
	}
	return t
}

// SetBaseURL overrides the backend base URL. Intended for tests and the
// offline mock server; the real endpoints are vendor-fixed.
func (t *Transport) SetBaseURL(base string) {
	t.baseURL = strings.TrimRight(base, "/")
}

// SetTimeout sets the per-request timeout
func (t *Transport) SetTimeout(timeout time.Duration) {
	t.client.Timeout = timeout
}

// SetHTTPClient replaces the underlying HTTP client
func (t *Transport) SetHTTPClient(client *http.Client) {
	t.client = client
}

// SetRequestSpacing sets the minimum gap between outbound requests.
// Zero or negative disables the gate entirely.
func (t *Transport) SetRequestSpacing(spacing time.Duration) {
	if spacing <= 0 {
		t.gate = nil
		return
	}
	t.gate = newSpacingGate(spacing)
}

// Do executes one request. sess may be nil for unauthenticated calls
// (login). Failures classify as TransportError: client-side problems are
// Network, non-2xx statuses are HTTP, and a non-JSON body is Decode.
func (t *Transport) Do(ctx context.Context, sess *session, req *Request) (*Response, error) {
	if t.gate != nil {
		delay, err := t.gate.wait(ctx)
		if err != nil {
			return nil, NewNetworkError("canceled while queued behind request spacing", err)
		}
		if delay > 0 {
			logging.LogRateDelay(req.Path, delay)
		}
	}

	fullURL := t.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if req.Authenticated && sess != nil {
		switch t.version {
		case V1:
			httpReq.AddCookie(&http.Cookie{Name: v1SessionCookie, Value: sess.token})
		case V2:
			httpReq.Header.Set("Authorization", "Bearer "+sess.token)
		}
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, NewNetworkError("request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	logging.LogAPICall(t.version.String(), req.Method, req.Path, httpResp.StatusCode, time.Since(start))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, NewHTTPError(httpResp.StatusCode, fmt.Sprintf("backend returned status %d for %s", httpResp.StatusCode, req.Path))
	}

	// Both backends speak JSON on every endpoint; anything else means the
	// response never came from the API proper (proxy page, outage page)
	if !json.Valid(respBody) {
		return nil, NewDecodeError(fmt.Sprintf("backend returned an undecodable body for %s", req.Path), nil)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Cookies:    httpResp.Cookies(),
	}, nil
}

// spacingGate meters outbound requests to a minimum interval. Each caller
// reserves the next free slot under the lock and sleeps outside it, so
// bursts queue up FIFO instead of being dropped or interleaved.
type spacingGate struct {
	interval time.Duration

	mu sync.Mutex
	// next is the earliest time the next request may go out
	next time.Time
}

func newSpacingGate(interval time.Duration) *spacingGate {
	return &spacingGate{interval: interval}
}

// wait blocks until the caller's reserved slot arrives. It returns how long
// the caller was delayed. A canceled context abandons the wait but not the
// reservation: the gap to the remote service is preserved either way.
func (g *spacingGate) wait(ctx context.Context) (time.Duration, error) {
	g.mu.Lock()
	now := time.Now()
	var delay time.Duration
	if g.next.After(now) {
		delay = g.next.Sub(now)
		g.next = g.next.Add(g.interval)
	} else {
		g.next = now.Add(g.interval)
	}
	g.mu.Unlock()

	if delay <= 0 {
		return 0, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return delay, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}
