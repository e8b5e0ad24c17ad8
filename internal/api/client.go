// Package api is the authenticated client for the AIBUDDIES backend.
//
// Every call goes through Client.Call, which reports progress to a Tracker
// (the application state container), attaches the session's bearer
// credential, and maps non-success replies to *HTTPError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aibuddies/internal/logging"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// SlowRequestThreshold is the duration above which a call is logged as a
// warning.
const SlowRequestThreshold = 30 * time.Second

// TokenSource yields the current bearer credential, or "" when signed out.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Tracker observes the lifecycle of each call.
type Tracker interface {
	// Begin marks a call in flight and clears the previous outcome.
	Begin()
	// Fail records the user-visible error of a call.
	Fail(err error)
	// End marks the call finished. It runs on every path.
	End()
}

type nopTracker struct{}

func (nopTracker) Begin()     {}
func (nopTracker) Fail(error) {}
func (nopTracker) End()       {}

// Options configures a single call.
type Options struct {
	Method  string
	Headers map[string]string
	// Body is JSON-encoded when non-nil.
	Body interface{}
}

// Client talks to the backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	tracker Tracker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
		tokens:  tokens,
		tracker: nopTracker{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTracker returns a copy of c reporting to t.
func (c *Client) WithTracker(t Tracker) *Client {
	cp := *c
	if t == nil {
		t = nopTracker{}
	}
	cp.tracker = t
	return &cp
}

// isPublic reports whether endpoint may be called without a session.
func isPublic(endpoint string) bool {
	return strings.HasPrefix(endpoint, PathTools)
}

// Call performs a request against endpoint and decodes the JSON reply into
// out (when non-nil).
func (c *Client) Call(ctx context.Context, endpoint string, opts Options, out interface{}) error {
	c.tracker.Begin()
	defer c.tracker.End()

	err := c.call(ctx, endpoint, opts, out)
	if err != nil {
		c.tracker.Fail(err)
	}
	return err
}

func (c *Client) call(ctx context.Context, endpoint string, opts Options, out interface{}) error {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.AccessToken(ctx)
		switch {
		case err == nil:
			token = t
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			// The token could not be refreshed and is no longer valid.
			logging.APIError("No usable session for %s: %v", endpoint, err)
		}
	}
	if token == "" && !isPublic(endpoint) {
		logging.APIDebug("Refusing %s without a session", endpoint)
		return ErrUnauthenticated
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	// Set last so caller headers cannot replace the credential.
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logging.WithRequestID(logging.CategoryAPI, requestID)
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+endpoint)
	resp, err := c.http.Do(req)
	elapsed := timer.StopWithThreshold(SlowRequestThreshold)
	if err != nil {
		log.Error("%s %s failed: %v", method, endpoint, err)
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}
	log.Debug("%s %s -> %d in %v", method, endpoint, resp.StatusCode, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Detail: detailOf(body, resp.StatusCode)}
	}

	if !gjson.ValidBytes(body) {
		return fmt.Errorf("invalid JSON in response from %s", endpoint)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
		if v, ok := out.(validator); ok {
			if err := v.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// validator is implemented by reply types that can be well-formed JSON and
// still unusable.
type validator interface {
	validate() error
}

// detailOf returns the detail field verbatim when it is a string, its raw JSON
// otherwise, and "Error {status}" when it is missing or empty.
func detailOf(body []byte, status int) string {
	if !gjson.ValidBytes(body) {
		return fallbackDetail(status)
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case !detail.Exists(), detail.Type == gjson.Null:
		return fallbackDetail(status)
	case detail.Type == gjson.String:
		if detail.Str == "" {
			return fallbackDetail(status)
		}
		return detail.Str
	case detail.Type == gjson.False:
		return fallbackDetail(status)
	case detail.Type == gjson.Number && detail.Num == 0:
		return fallbackDetail(status)
	default:
		return detail.Raw
	}
}
