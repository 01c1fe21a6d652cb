// FILE: internal/fetch/http_client.go
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ClientOptions for the fetch client.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	RetryMax  int

	// RetryWaitMin overrides the backoff floor; zero keeps the library default.
	RetryWaitMin time.Duration
	Logger       *zap.Logger
}

// Client is a small wrapper around retryablehttp to provide timeouts and UA.
type Client struct {
	inner     *retryablehttp.Client
	userAgent string
}

// NewClient creates a new Client.
func NewClient(opts ClientOptions) *Client {
	r := retryablehttp.NewClient()
	r.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		r.RetryWaitMin = opts.RetryWaitMin
		if r.RetryWaitMax < opts.RetryWaitMin {
			r.RetryWaitMax = opts.RetryWaitMin
		}
	}
	r.HTTPClient.Timeout = opts.Timeout
	// Hand the final response back instead of a "giving up" error so callers
	// can read upstream error bodies.
	r.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		r.Logger = leveledLogger{s: opts.Logger.Sugar()}
	} else {
		r.Logger = nil
	}
	return &Client{inner: r, userAgent: opts.UserAgent}
}

// Get issues a GET bound to ctx with the given headers. Retries apply to
// network errors and 5xx responses.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.inner.Do(req)
}

// StandardClient returns an *http.Client backed by the retrying transport.
func (c *Client) StandardClient() *http.Client {
	return c.inner.StandardClient()
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) { l.s.Errorw(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...interface{})  { l.s.Infow(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) { l.s.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...interface{})  { l.s.Warnw(msg, keysAndValues...) }
