// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package mastodon is a small client for the parts of the Mastodon REST API
Analytodon needs: app registration, the OAuth authorization-code flow,
verify_credentials and paging through an account's statuses.

A single Client serves every instance. Each host gets its own rate limiter
and circuit breaker so a slow or failing instance cannot starve the others.

	client := mastodon.NewClient(&cfg.Mastodon)
	acct, err := client.VerifyCredentials(ctx, "https://mastodon.social", token)
	if errors.Is(err, mastodon.ErrUnauthorized) {
	    // token revoked
	}
*/
package mastodon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
)

var (
	// ErrUnauthorized is returned for HTTP 401 and 403. The access token is
	// revoked or lacks a scope.
	ErrUnauthorized = errors.New("mastodon: unauthorized")

	// ErrNotFound is returned for HTTP 404.
	ErrNotFound = errors.New("mastodon: not found")

	// ErrCircuitOpen is returned without contacting the host while its
	// breaker is open.
	ErrCircuitOpen = errors.New("mastodon: circuit breaker open")

	// ErrInvalidServerURL is returned by NormalizeServerURL.
	ErrInvalidServerURL = errors.New("mastodon: invalid server URL")
)

// APIError is a non-2xx response that is not mapped to a sentinel.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mastodon: request failed with status %d: %s", e.StatusCode, e.Body)
}

const maxErrorBodySize = 16 * 1024

// Client calls Mastodon instances.
type Client struct {
	httpClient *http.Client
	userAgent  string
	pageSize   int
	hosts      *hostRegistry
}

// NewClient builds a client from the mastodon config section.
func NewClient(cfg *config.MastodonConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		userAgent:  cfg.UserAgent,
		pageSize:   cfg.PageSize,
		hosts:      newHostRegistry(cfg.RateLimit, cfg.RateBurst),
	}
}

// NormalizeServerURL turns user input into a canonical instance base URL.
//
//	mastodon.social           -> https://mastodon.social
//	https://Mastodon.Social/  -> https://mastodon.social
func NormalizeServerURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidServerURL
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidServerURL, u.Scheme)
	}
	if u.Host == "" || strings.ContainsAny(u.Host, " @") {
		return "", fmt.Errorf("%w: missing host", ErrInvalidServerURL)
	}
	if u.User != nil {
		return "", fmt.Errorf("%w: credentials are not allowed", ErrInvalidServerURL)
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}

// request describes one API call.
type request struct {
	endpoint string // metrics label
	method   string
	server   string
	path     string
	token    string
	query    url.Values
	form     url.Values
}

func (r *request) url() string {
	u := strings.TrimRight(r.server, "/") + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// do runs req through the host's limiter and breaker and decodes the JSON
// body into out.
func (c *Client) do(ctx context.Context, req *request, out interface{}) error {
	parsed, err := url.Parse(req.server)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, req.server)
	}
	h := c.hosts.get(parsed.Host)

	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = h.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, req, out)
	})

	outcome := "success"
	switch {
	case err == nil:
	case isBreakerRejection(err):
		outcome = "rejected"
		err = fmt.Errorf("%w: %s", ErrCircuitOpen, parsed.Host)
	default:
		outcome = "failure"
	}
	metrics.MastodonRequests.WithLabelValues(req.endpoint, outcome).Inc()
	return err
}

func (c *Client) roundTrip(ctx context.Context, req *request, out interface{}) error {
	var body io.Reader = http.NoBody
	if req.form != nil {
		body = strings.NewReader(req.form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url(), body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{StatusCode: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.endpoint, err)
	}
	return nil
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}

// isClientError reports errors caused by the caller rather than the host.
// They do not count against the breaker.
func isClientError(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

