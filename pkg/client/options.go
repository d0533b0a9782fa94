package client

import (
	"net/http"
	"time"
)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry configures retry count and backoff bounds.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if max >= 0 {
			c.retryMax = max
		}
		if waitMin > 0 {
			c.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			c.retryWaitMax = waitMax
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
