// Package turnstile implements a client for the Cloudflare Turnstile
// siteverify API, the remote verifier for the contact form's bot-protection
// token.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the production Cloudflare siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier is the contract the submission handler depends on. The result is
// consumed once per request.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*VerifyResult, error)
}

// VerifyResult is the verifier's JSON reply. Hostname is the site the token
// was issued for; callers must check it against their own allow-list.
type VerifyResult struct {
	Success     bool     `json:"success"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// Client calls the siteverify endpoint with a shared secret.
type Client struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithVerifyURL overrides the siteverify endpoint, mainly for tests.
func WithVerifyURL(u string) ClientOption {
	return func(c *Client) {
		c.verifyURL = u
	}
}

// NewClient creates a new Turnstile client
func NewClient(secret string, opts ...ClientOption) *Client {
	c := &Client{
		secret:    secret,
		verifyURL: DefaultVerifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Verify submits the token and caller IP to the verifier. Any transport
// failure, non-2xx status, or undecodable body is returned as an error;
// callers treat all of those the same as a failed verification.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (*VerifyResult, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach verifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode verifier response: %w", err)
	}

	return &result, nil
}
