package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/logging"
	"github.com/sdejongh/filesage/pkg/ratelimit"
	"github.com/sdejongh/filesage/pkg/retry"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// ErrRangeUnsupported is returned when a server answers a ranged request with the full body
var ErrRangeUnsupported = errors.New("server does not support byte ranges")

// StatusError is returned for unexpected HTTP status codes
type StatusError struct {
	URL        string
	Method     string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// Tracker receives the byte count of a streamed body as it is read
type Tracker interface {
	Add(n int64)
	Done()
}

// ProgressFunc creates a tracker for one body; total is -1 when unknown
type ProgressFunc func(url string, total int64) Tracker

// Options configures a Client
type Options struct {
	// Timeout bounds metadata and range requests end to end. For streamed
	// bodies it bounds the wait for response headers and every body read
	// that makes no progress.
	Timeout time.Duration
	Retry   retry.Policy
	// Limiter caps the read rate of streamed bodies; nil disables limiting
	Limiter   *ratelimit.Limiter
	UserAgent string
	// Transport overrides the default transport
	Transport http.RoundTripper
	Logger    logging.Logger
	Progress  ProgressFunc
}

// Client is the HTTP collaborator used by the comparison engine
type Client struct {
	http      *http.Client
	timeout   time.Duration
	retry     retry.Policy
	limiter   *ratelimit.Limiter
	userAgent string
	logger    logging.Logger
	progress  ProgressFunc
}

// NewClient creates a new client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = opts.Timeout
		transport = t
	}

	return &Client{
		http:      &http.Client{Transport: transport},
		timeout:   opts.Timeout,
		retry:     opts.Retry,
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
		progress:  opts.Progress,
	}
}

// NewClientFromConfig builds a client from the network section of cfg
func NewClientFromConfig(cfg *config.Config, logger logging.Logger) *Client {
	return NewClient(Options{
		Timeout:   cfg.Network.Timeout,
		Retry:     RetryPolicy(cfg),
		Limiter:   ratelimit.NewLimiter(cfg.Network.BandwidthLimit),
		UserAgent: cfg.Network.UserAgent,
		Logger:    logger,
	})
}

// RetryPolicy derives the retry policy from cfg
func RetryPolicy(cfg *config.Config) retry.Policy {
	p := retry.Policy{MaxRetries: cfg.Network.MaxRetries}
	if cfg.Network.Backoff == config.BackoffExponential {
		p.Backoff = retry.Exponential{
			Initial: cfg.Network.InitialBackoff,
			Max:     cfg.Network.MaxBackoff,
			Jitter:  true,
		}
	}
	return p
}

// WithProgress returns a copy of the client reporting streamed bodies to fn
func (c *Client) WithProgress(fn ProgressFunc) *Client {
	clone := *c
	clone.progress = fn
	return &clone
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) newRequest(ctx context.Context, method, url string, header http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindConfiguration, err, "invalid url %q", url)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// withRetry runs op under the client's retry policy, logging each retry
func withRetry[T any](ctx context.Context, c *Client, url string, op func(ctx context.Context) (T, error)) (T, error) {
	p := c.retry
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		c.logger.Warn(ctx, "retrying request", logging.Fields{
			"url":     url,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return retry.Do(ctx, p, op)
}

// unavailable wraps a network failure that survived every retry
func unavailable(url string, err error) error {
	if err == nil || xerrors.Is(err, xerrors.KindConfiguration) {
		return err
	}
	return &xerrors.Error{Kind: xerrors.KindRemoteUnavailable, Remote: url, Err: err}
}
