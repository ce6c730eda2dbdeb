package oidckit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TaxEnough/taxenough/core"
)

// ErrProfileNotFound means the provider has no user with the given id.
var ErrProfileNotFound = errors.New("oidc: profile not found")

// ProfileAPI is the provider's backend user API: fetch a user by id, and
// write the authoritative subscription record into private metadata.
type ProfileAPI interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	UpdateSubscription(ctx context.Context, userID string, ent core.Entitlement, priceID string) error
}

// ProfileClient talks to the provider's backend API over REST.
//
// Every call is bounded by the configured timeout and retried once on
// transport errors or 5xx responses; exhaustion surfaces as
// core.ErrUpstreamUnavailable so callers can tell an outage apart from an
// unknown user.
type ProfileClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// NewProfileClient builds a backend API client.
func NewProfileClient(baseURL, apiKey string, timeout time.Duration) *ProfileClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Get fetches a user profile by provider subject id.
func (c *ProfileClient) Get(ctx context.Context, userID string) (*Profile, error) {
	if c.baseURL == "" {
		return nil, core.ErrUpstreamUnavailable
	}
	var profile Profile
	err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, &profile)
	if err != nil {
		return nil, err
	}
	if profile.ID == "" {
		profile.ID = userID
	}
	return &profile, nil
}

// UpdateSubscription writes the subscription record into the user's private
// metadata. Existing unrelated metadata keys are preserved by the provider's
// merge semantics.
func (c *ProfileClient) UpdateSubscription(ctx context.Context, userID string, ent core.Entitlement, priceID string) error {
	if c.baseURL == "" {
		return core.ErrUpstreamUnavailable
	}
	sub := map[string]any{
		"status": string(ent.Status),
		"plan":   string(ent.Plan),
	}
	if ent.PeriodEnd != nil {
		sub["period_end"] = ent.PeriodEnd.UTC().Format(time.RFC3339)
	}
	if priceID != "" {
		sub["price_id"] = priceID
	}
	body := map[string]any{
		"private_metadata": map[string]any{"subscription": sub},
	}
	return c.do(ctx, http.MethodPatch, "/users/"+userID+"/metadata", body, nil)
}

// terminalError marks failures that a retry cannot fix (4xx responses).
type terminalError struct{ err error }

func (e terminalError) Error() string { return e.err.Error() }
func (e terminalError) Unwrap() error { return e.err }

// do performs one request with a single bounded retry on transport errors and
// 5xx responses.
func (c *ProfileClient) do(ctx context.Context, method, path string, body, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = c.once(ctx, method, path, body, out)
		var term terminalError
		if lastErr == nil || errors.As(lastErr, &term) || ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", core.ErrUpstreamUnavailable, lastErr)
}

func (c *ProfileClient) once(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return terminalError{ErrProfileNotFound}
	case resp.StatusCode >= 500:
		return fmt.Errorf("oidc: backend api %s %s: %s", method, path, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return terminalError{fmt.Errorf("oidc: backend api %s %s: %s", method, path, resp.Status)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("oidc: decode response: %w", err)
		}
	}
	return nil
}
