// Package oidckit integrates the hosted identity provider: session-token
// verification against its JWKS, the authorization-code login flow, and the
// backend profile API that serves user metadata.
package oidckit

import (
	"context"
	"time"
)

// Claims is a minimal set of identity fields extracted from an ID token.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified *bool
	Name          string
	RawIDToken    string
}

// Profile is a user record fetched from the provider's backend API.
// Private metadata is writable only server-side; public metadata is visible
// to the client SDKs. Entitlement resolution prefers private over public.
type Profile struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	PublicMetadata  map[string]any `json:"public_metadata"`
	PrivateMetadata map[string]any `json:"private_metadata"`
}

// StateData is the per-login state stashed between the authorization redirect
// and the callback.
type StateData struct {
	Verifier  string    `json:"verifier"`
	Nonce     string    `json:"nonce"`
	ReturnURL string    `json:"return_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StateCache stores login state keyed by the OAuth state parameter.
type StateCache interface {
	Put(ctx context.Context, state string, data StateData) error
	Get(ctx context.Context, state string) (StateData, bool, error)
	Del(ctx context.Context, state string) error
}
