package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "httpclient")

// DefaultTimeout bounds a single upstream call when no override is given.
const DefaultTimeout = 10 * time.Second

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error is the structured failure value for an upstream call. Transport
// failures carry a zero StatusCode; HTTP failures carry the upstream code
// and the raw body.
type Error struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return "upstream returned " + http.StatusText(e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCode extracts the upstream HTTP status from an error, or 0.
func StatusCode(err error) int {
	var he *Error
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// Client issues JSON requests against external data APIs.
// Every failure mode is returned as *Error; it never panics.
type Client struct {
	http    Doer
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// New returns a Client with the default timeout.
func New(opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Get issues a GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, rawurl string, params url.Values, headers map[string]string) (json.RawMessage, error) {
	if len(params) > 0 {
		rawurl = rawurl + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, &Error{cause: errors.Wrap(err, "failed to create request")}
	}
	return c.do(req, headers)
}

// PostForm issues a POST with form-encoded body and returns the raw JSON body.
func (c *Client) PostForm(ctx context.Context, rawurl string, form url.Values, headers map[string]string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{cause: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, headers)
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawurl string, params url.Values, headers map[string]string, out any) error {
	body, err := c.Get(ctx, rawurl, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			StatusCode: http.StatusOK,
			Body:       string(body),
			cause:      errors.Wrap(err, "failed to decode response"),
		}
	}
	return nil
}

func (c *Client) do(req *http.Request, headers map[string]string) (json.RawMessage, error) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.ContextKV(req.Context(), xlog.DEBUG,
			"url", req.URL.Host,
			"err", err.Error())
		return nil, &Error{cause: errors.Wrap(err, "request failed")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			cause:      errors.Wrap(err, "failed to read response body"),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.ContextKV(req.Context(), xlog.DEBUG,
			"url", req.URL.Host,
			"status", resp.StatusCode)
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if !json.Valid(body) {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			cause:      errors.New("response is not valid JSON"),
		}
	}

	return body, nil
}
