// Package client is the Go SDK for the structure-editor API.  It wraps the
// HTTP surface with typed sub-clients for sessions, resolution/analysis, and
// saved sketches.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Version identifies the SDK in the User-Agent header.
const Version = "0.1.0"

// Logger is the minimal logging surface the client needs.  The zero client
// logs nothing.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client is the API client.  Construct it with NewClient; the zero value is
// not usable.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	sessions     *SessionsClient
	sessionsOnce sync.Once
	sketches     *SketchesClient
	sketchesOnce sync.Once
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stereo: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

// IsNotFound reports a 404 response.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsRateLimited reports a 429 response.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsServerError reports a 5xx response.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      *envelopeError  `json:"error"`
	Pagination *Pagination     `json:"pagination"`
	RequestID  string          `json:"request_id"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pagination carries list paging metadata.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewClient builds a client for the given server base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("stereo: baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("stereo: invalid baseURL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("stereo: baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("stereo-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sessions returns the editor-session sub-client.
func (c *Client) Sessions() *SessionsClient {
	c.sessionsOnce.Do(func() { c.sessions = &SessionsClient{client: c} })
	return c.sessions
}

// Sketches returns the saved-sketch sub-client.
func (c *Client) Sketches() *SketchesClient {
	c.sketchesOnce.Do(func() { c.sketches = &SketchesClient{client: c} })
	return c.sketches
}

// do performs one request with retries on transport and 5xx failures, and
// honors Retry-After on 429.  On success it decodes the envelope's data
// field into result; pagination, when present, is copied to page.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, page *Pagination) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("stereo: failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debugf("retry %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return fmt.Errorf("stereo: failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("request failed: %v", err)
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("stereo: failed to read response: %w", err)
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retryMax {
			if wait := retryAfter(resp); wait > 0 {
				c.logger.Infof("rate limited, retrying after %v", wait)
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := decodeAPIError(resp, respBody)
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}

		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("stereo: failed to decode response: %w", err)
		}
		if page != nil && env.Pagination != nil {
			*page = *env.Pagination
		}
		if result != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, result); err != nil {
				return fmt.Errorf("stereo: failed to decode response data: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result, nil)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result, nil)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result, nil)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	return d + time.Duration(rand.Int63n(int64(d/4)+1))
}

func decodeAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	} else if len(body) > 0 {
		apiErr.Message = string(body)
	}
	return apiErr
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
