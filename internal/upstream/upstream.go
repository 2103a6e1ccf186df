// Package upstream holds the plumbing shared by every SaaS collaborator client.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultTimeout bounds a single collaborator call, retries included.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when a collaborator call exceeds its deadline.
	ErrTimeout = errors.New("upstream call timed out")
	// ErrNotConfigured is returned by clients built without credentials.
	ErrNotConfigured = errors.New("upstream service not configured")
)

// Failure is a non-2xx response from a collaborator.
type Failure struct {
	Service string
	Status  int
	Message string
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d", f.Service, f.Status)
	}

	return fmt.Sprintf("%s: status %d: %s", f.Service, f.Status, f.Message)
}

// IsStatus reports whether err is a Failure with the given HTTP status.
func IsStatus(err error, status int) bool {
	var f *Failure

	return errors.As(err, &f) && f.Status == status
}

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// RetryPolicy reports whether a failed attempt with the given status may be repeated.
type RetryPolicy func(status int) bool

// RetryThrottledOrServer retries 429 and 5xx responses. Use it for calls that
// are idempotent or carry an idempotency key.
func RetryThrottledOrServer(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// RetryThrottled retries only 429 responses, which the provider guarantees it
// did not act on.
func RetryThrottled(status int) bool {
	return status == http.StatusTooManyRequests
}

// Client performs calls against one collaborator.
type Client struct {
	service    string
	http       *http.Client
	timeout    time.Duration
	maxRetries uint64
	baseDelay  time.Duration
	retryable  RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetries sets how many times a retryable response is retried.
func WithRetries(n uint64, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.baseDelay = baseDelay
	}
}

// WithRetryPolicy replaces RetryThrottledOrServer.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) { c.retryable = policy }
}

// NewClient creates a client for the named service. A zero timeout means DefaultTimeout.
func NewClient(service string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		service:    service,
		http:       http.DefaultClient,
		timeout:    timeout,
		maxRetries: 2,
		baseDelay:  200 * time.Millisecond,
		retryable:  RetryThrottledOrServer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Service returns the collaborator name used in errors.
func (c *Client) Service() string {
	return c.service
}

// Timeout returns the bound of a single call, retries included.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// HTTPClient returns the http.Client SDK-backed callers should send through.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Call runs fn under the client's timeout and retry policy. fn reports
// provider rejections as *Failure so they can be retried and mapped; any
// other error ends the call.
func (c *Client) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)

		var failure *Failure
		if errors.As(err, &failure) && c.retryable(failure.Status) {
			return retry.RetryableError(err)
		}

		return err
	})

	return c.mapTimeout(err)
}

func (c *Client) mapTimeout(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", c.service, ErrTimeout)
	}

	return err
}

// Do sends the request through Call and decodes a 2xx JSON body into out.
// out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, newRequest RequestFunc, out any) error {
	return c.Call(ctx, func(ctx context.Context) error {
		req, err := newRequest(ctx)
		if err != nil {
			return fmt.Errorf("%s: building request: %w", c.service, err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", c.service, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return &Failure{
				Service: c.service,
				Status:  resp.StatusCode,
				Message: readMessage(resp.Body),
			}
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)

			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", c.service, err)
		}

		return nil
	})
}

func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(raw))
}
