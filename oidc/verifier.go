package oidckit

import (
	"context"
	"errors"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenVerifier validates provider-issued tokens against issuer and keys.
type TokenVerifier struct {
	issuer   string
	audience string
	keySet   jwk.Set
	nonce    func(context.Context) string
}

// VerifierOpt configures a token verifier.
type VerifierOpt func(*TokenVerifier)

// WithAudience requires the token to carry the given audience.
func WithAudience(aud string) VerifierOpt {
	return func(v *TokenVerifier) { v.audience = aud }
}

// WithNonce requires the token to carry the given nonce.
func WithNonce(fn func(context.Context) string) VerifierOpt {
	return func(v *TokenVerifier) { v.nonce = fn }
}

// NewTokenVerifier builds a verifier for the specified issuer.
func NewTokenVerifier(issuer string, keySet jwk.Set, opts ...VerifierOpt) *TokenVerifier {
	v := &TokenVerifier{issuer: issuer, keySet: keySet}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates a provider token (session token or ID token) and extracts
// the identity claims it carries.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if v == nil || v.keySet == nil {
		return nil, errors.New("oidc: missing key set")
	}
	parseOpts := []jwt.ParseOption{
		jwt.WithKeySet(v.keySet),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithContext(ctx),
	}
	if v.audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseString(rawToken, parseOpts...)
	if err != nil {
		return nil, err
	}
	if v.nonce != nil {
		expected := v.nonce(ctx)
		if expected != "" {
			rawNonce, ok := token.Get("nonce")
			if !ok {
				return nil, errors.New("oidc: missing nonce")
			}
			nonce, ok := rawNonce.(string)
			if !ok || nonce != expected {
				return nil, errors.New("oidc: nonce mismatch")
			}
		}
	}
	claims := &Claims{Subject: token.Subject(), RawIDToken: rawToken}
	if raw, ok := token.Get("email"); ok {
		if email, ok := raw.(string); ok {
			claims.Email = email
		}
	}
	if raw, ok := token.Get("email_verified"); ok {
		switch val := raw.(type) {
		case bool:
			claims.EmailVerified = &val
		case string:
			if strings.EqualFold(val, "true") {
				b := true
				claims.EmailVerified = &b
			} else if strings.EqualFold(val, "false") {
				b := false
				claims.EmailVerified = &b
			}
		}
	}
	if raw, ok := token.Get("name"); ok {
		if name, ok := raw.(string); ok {
			claims.Name = name
		}
	}
	return claims, nil
}
