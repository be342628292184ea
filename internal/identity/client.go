// Package identity verifies academic credentials against the external
// identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/httpclient"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Profile is what the provider returns for valid credentials.
type Profile struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

// Verifier checks credentials. Client is the production implementation.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (*Profile, error)
}

type Client struct {
	url            string
	apiKey         string
	allowedDomains []string
	http           *httpclient.Client
	cb             *gobreaker.CircuitBreaker
	log            *zap.Logger
}

type Options struct {
	URL            string
	APIKey         string
	AllowedDomains []string
	HTTP           *httpclient.Client
	// MaxFailures consecutive upstream failures open the breaker.
	MaxFailures  uint32
	OpenInterval time.Duration
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HTTP == nil {
		opts.HTTP = httpclient.NewClient(httpclient.DefaultConfig())
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenInterval == 0 {
		opts.OpenInterval = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "identity",
		MaxRequests: 1,
		Timeout:     opts.OpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Client{
		url:            opts.URL,
		apiKey:         opts.APIKey,
		allowedDomains: opts.AllowedDomains,
		http:           opts.HTTP,
		cb:             gobreaker.NewCircuitBreaker(st),
		log:            logger,
	}
}

// Verify posts the credentials to the provider. Rejected credentials are an
// authentication error; an email outside the campus domains is forbidden; any
// other failure means the provider is unavailable.
func (c *Client) Verify(ctx context.Context, username, password string) (*Profile, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if c.url == "" {
		return nil, apperr.Unavailable("identity provider is not configured", nil)
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, username, password)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Unavailable("identity provider temporarily unavailable", err)
		}
		c.log.Error("identity provider call failed", zap.Error(err))
		return nil, apperr.Unavailable("identity provider unavailable", err)
	}

	out := res.(result)
	if out.rejected {
		return nil, apperr.ErrBadCredentials
	}
	if !AllowedEmail(out.profile.Email, c.allowedDomains) {
		return nil, apperr.ErrCampusOnly
	}
	return out.profile, nil
}

// result separates rejected credentials, which must not trip the breaker,
// from upstream failures.
type result struct {
	profile  *Profile
	rejected bool
}

func (c *Client) call(ctx context.Context, username, password string) (result, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return result{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return result{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return result{rejected: true}, nil
	case resp.StatusCode != http.StatusOK:
		return result{}, fmt.Errorf("identity provider status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return result{}, fmt.Errorf("decode profile: %w", err)
	}
	if p.Subject == "" || p.Email == "" {
		return result{}, errors.New("identity provider returned an incomplete profile")
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return result{profile: &p}, nil
}

// AllowedEmail reports whether email belongs to one of domains or one of
// their subdomains. An empty domain list allows every address.
func AllowedEmail(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	host := strings.ToLower(email[at+1:])
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
