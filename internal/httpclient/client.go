// Package httpclient is the outbound HTTP client shared by the identity
// provider client and the conversation client. Requests carry a timeout and
// may be retried with exponential backoff.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"campusmarket/backend/internal/config"

	"github.com/cenkalti/backoff/v4"
)

type ClientConfig struct {
	Timeout         time.Duration
	RetryInitial    time.Duration
	RetryMaxElapsed time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:         config.OutboundTimeout,
		RetryInitial:    500 * time.Millisecond,
		RetryMaxElapsed: 10 * time.Second,
		MaxIdleConns:    20,
		IdleConnTimeout: 90 * time.Second,
	}
}

// StatusError is returned when retries are exhausted on 5xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

type Client struct {
	http *http.Client
	conf ClientConfig
}

func NewClient(conf ClientConfig) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    conf.MaxIdleConns,
		IdleConnTimeout: conf.IdleConnTimeout,
	}
	return &Client{
		http: &http.Client{Transport: tr, Timeout: conf.Timeout},
		conf: conf,
	}
}

// Do sends req once.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.http.Do(req.WithContext(ctx))
}

// DoWithRetry retries network errors and 5xx responses with exponential
// backoff. Requests with a body must have GetBody set, which
// http.NewRequest does for in-memory readers. Only use it for idempotent calls.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			attempt.Body = body
		}

		r, err := c.http.Do(attempt)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			// drain so the connection is reused
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return &StatusError{StatusCode: r.StatusCode}
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if c.conf.RetryInitial > 0 {
		b.InitialInterval = c.conf.RetryInitial
	}
	b.MaxElapsedTime = c.conf.RetryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
