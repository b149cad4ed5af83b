// Package httpclient is a thin, retrying, rate-aware transport over the
// remote REST API, as described in spec.md §4.B.
package httpclient

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/token"
)

// Config controls retry and rate-limiting behavior.
type Config struct {
	MaxRetries     int           // capped retries on 429/5xx; default 5
	RequestTimeout time.Duration // per-request timeout; default 30s
	RatePerSecond  float64       // outbound requests/sec through this Client; 0 = unlimited
	Burst          int           // token-bucket burst; default 1
}

// DefaultConfig returns production-sensible retry/rate defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		RequestTimeout: 30 * time.Second,
		RatePerSecond:  10,
		Burst:          5,
	}
}

// Client wraps net/http.Client with retries, rate limiting, and request-id
// correlation. One Client is shared by all pipelines touching the same
// Remote.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client. transport may be nil to use http.DefaultTransport
// (which already performs transparent gzip/deflate decompression).
func New(cfg Config, transport http.RoundTripper) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		limiter: limiter,
	}
}

// TokenResolver resolves the credential for a request by delegating to the
// ordered token-source chain in internal/token.
func TokenResolver(ctx context.Context, sources []figmodel.TokenProvider) (string, error) {
	return token.Resolve(ctx, sources)
}

// Do executes req with retry-on-transient-failure and rate limiting. It
// surfaces a CategoryRemote error (including the request-id) on retry
// exhaustion or any 4xx auth/permission response, which is never retried.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reqID := newRequestID()
	req.Header.Set("X-Request-Id", reqID)

	op := func() (*http.Response, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(apperrors.Wrap(apperrors.CategoryCancelled, "httpclient.rate_wait", err))
			}
		}
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return nil, apperrors.Transient("httpclient.do", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, apperrors.Transient("httpclient.do",
				fmt.Errorf("request %s: status %d: %s", reqID, resp.StatusCode, body))
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, backoff.Permanent(apperrors.New(apperrors.CategoryRemote, "httpclient.do",
				fmt.Errorf("request %s: status %d: %s", reqID, resp.StatusCode, body)))
		}
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
	)
	if err != nil {
		return nil, asRemoteError(reqID, err)
	}
	return resp, nil
}

func asRemoteError(reqID string, err error) error {
	if apperrors.IsCategory(err, apperrors.CategoryRemote) || apperrors.IsCategory(err, apperrors.CategoryCancelled) {
		return err
	}
	return apperrors.New(apperrors.CategoryRemote, "httpclient.do",
		fmt.Errorf("request %s exhausted retries: %w", reqID, err))
}

func newRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
