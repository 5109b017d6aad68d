// Package httpx is the HTTP client shared by the album lister and the
// fetcher. Every request is attempted once. The timeout bounds connecting,
// waiting for response headers and every gap between body reads, so a slow
// but steady download is never cut off.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/raoulx24/album-mirror/internal/logging"
)

const (
	DefaultTimeout   = 40 * time.Second
	DefaultUserAgent = "album-mirror/1.0"

	// error bodies are kept for diagnostics only
	maxErrorBody = 4 << 10
)

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Log       logging.Logger
	// Transport replaces the pooled default, mostly for tests.
	Transport http.RoundTripper
}

// Client is a util for the few HTTP operations the sync needs.
type Client struct {
	rc        *retryablehttp.Client
	userAgent string
	timeout   time.Duration
}

func New(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	rc.HTTPClient.Timeout = 0
	if opts.Transport != nil {
		rc.HTTPClient.Transport = opts.Transport
	} else if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
		t.DialContext = (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = opts.Timeout
		t.ResponseHeaderTimeout = opts.Timeout
	}

	if opts.Log != nil {
		rc.Logger = leveled{opts.Log}
	} else {
		rc.Logger = nil
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{rc: rc, userAgent: ua, timeout: opts.Timeout}
}

// Do sends req once. Non-2xx responses are returned, not turned into errors.
// The body fails with ErrIdleTimeout once no data arrived for the timeout.
func (c *Client) Do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = newIdleBody(resp.Body, c.timeout, cancel)
	return resp, nil
}

func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodHead, url, nil)
}

// Get returns the response of a successful GET; the caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(resp, url); err != nil {
		return nil, err
	}
	return resp, nil
}

// PostJSON sends v as JSON and decodes a successful response into out.
func (c *Client) PostJSON(ctx context.Context, url string, v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, url, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp, url); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// CheckStatus turns a non-2xx response into an *HTTPError and closes its body.
func CheckStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: bytes.TrimSpace(body)}
}

// idleBody cancels the request when the body stays silent for too long.
type idleBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
	cancel  context.CancelFunc
}

func newIdleBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{body: body, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		cancel()
	})
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 && !b.expired.Load() {
		b.timer.Reset(b.timeout)
	}
	if err != nil && err != io.EOF && b.expired.Load() {
		err = fmt.Errorf("%w after %s: %v", ErrIdleTimeout, b.timeout, err)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel()
	return err
}

// leveled adapts logging.Logger to retryablehttp.LeveledLogger.
type leveled struct {
	log logging.Logger
}

func (l leveled) Error(msg string, kv ...any) { l.log.Error(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.log.Debug(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.log.Debug(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.log.Warn(msg, kv...) }
