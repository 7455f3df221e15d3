package util

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"golang.org/x/exp/rand"
)

const defaultMaxAttempts = 3

type HTTPRetry struct {
	attempts    int
	maxAttempts int
	req         *http.Request
	client      *http.Client
	logger      logger.Logger
}

func (r *HTTPRetry) shouldRetry(resp *http.Response, err error) bool {
	if r.attempts > r.maxAttempts {
		return false
	}
	if err != nil {
		msg := err.Error()
		return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused")
	}
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return true
		}
	}
	return false
}

// Do sends the request, retrying with jitter on connection errors and on status codes
// that indicate the server is busy. The request context cancels the wait between attempts.
func (r *HTTPRetry) Do() (*http.Response, error) {
	for {
		r.attempts++
		resp, err := r.client.Do(r.req)
		if !r.shouldRetry(resp, err) {
			return resp, err
		}
		jitter := time.Duration(time.Millisecond*100 + time.Millisecond*time.Duration(rand.Int63n(int64(500*r.attempts))))
		if r.logger != nil {
			var code int
			if resp != nil {
				code = resp.StatusCode
			}
			r.logger.Trace("request failed (path: %s) (status: %d), retrying request in %v", r.req.URL.String(), code, jitter)
		}
		select {
		case <-r.req.Context().Done():
			return nil, r.req.Context().Err()
		case <-time.After(jitter):
		}
	}
}

// Attempts returns the number of requests sent so far.
func (r *HTTPRetry) Attempts() int {
	return r.attempts
}

type HTTPRetryOption func(*HTTPRetry)

func WithLogger(logger logger.Logger) HTTPRetryOption {
	return func(r *HTTPRetry) {
		r.logger = logger
	}
}

// WithClient sets the client used to send the request, the default is http.DefaultClient.
func WithClient(client *http.Client) HTTPRetryOption {
	return func(r *HTTPRetry) {
		r.client = client
	}
}

// WithMaxAttempts sets the number of retries after the first request.
func WithMaxAttempts(max int) HTTPRetryOption {
	return func(r *HTTPRetry) {
		r.maxAttempts = max
	}
}

// NewHTTPRetry creates a new utility for retrying HTTP requests.
func NewHTTPRetry(req *http.Request, opts ...HTTPRetryOption) *HTTPRetry {
	retry := HTTPRetry{
		req:         req,
		client:      http.DefaultClient,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&retry)
	}
	return &retry
}

// NewHTTPGet creates a retrying GET request for url bound to ctx.
func NewHTTPGet(ctx context.Context, url string, opts ...HTTPRetryOption) (*HTTPRetry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return NewHTTPRetry(req, opts...), nil
}
