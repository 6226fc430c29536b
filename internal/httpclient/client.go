// Package httpclient provides a shared, tuned HTTP client for sctui.
package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

// DefaultConfig returns sensible defaults for streaming media fetches.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxConnsPerHost: 16,
		UserAgent:       "sctui",
	}
}

// New creates an HTTP client tuned for segment and API fetches.
func New(cfg Config) *http.Client {
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 16
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression: true, // segments are already compressed
		DialContext:        dialer.DialContext,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	rt := http.RoundTripper(transport)
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{base: rt, agent: cfg.UserAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}
}

// NewWithRateLimit creates a client with bandwidth limiting.
// bytesPerSec is the maximum download speed; 0 means unlimited.
func NewWithRateLimit(cfg Config, bytesPerSec int64) *http.Client {
	client := New(cfg)

	if bytesPerSec > 0 {
		// Allow bursts of 64KB
		limiter := rate.NewLimiter(rate.Limit(bytesPerSec), 64*1024)
		client.Transport = &rateLimitedTransport{
			base:    client.Transport,
			limiter: limiter,
		}
	}

	return client
}

// userAgentTransport stamps a User-Agent on every request.
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}

// rateLimitedTransport wraps a transport with rate limiting.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	resp.Body = &rateLimitedReader{
		r:       resp.Body,
		limiter: t.limiter,
		ctx:     req.Context(),
	}
	return resp, nil
}

// rateLimitedReader wraps an io.ReadCloser with rate limiting.
type rateLimitedReader struct {
	r       io.ReadCloser
	limiter *rate.Limiter
	ctx     context.Context
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	if err := r.limiter.WaitN(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func (r *rateLimitedReader) Close() error {
	return r.r.Close()
}
