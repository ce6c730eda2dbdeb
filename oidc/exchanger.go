package oidckit

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Exchange trades an authorization code for tokens using PKCE and verifies the
// returned ID token, including the per-request nonce.
func Exchange(ctx context.Context, rp *RelyingParty, code, verifier, nonce string) (Claims, error) {
	oauth2Token, err := rp.OAuthConfig().Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return Claims{}, fmt.Errorf("oidc: token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Claims{}, fmt.Errorf("oidc: no id_token in response")
	}

	keySet, err := rp.KeySet(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("oidc: jwks fetch failed: %w", err)
	}
	v := NewTokenVerifier(
		rp.Issuer(),
		keySet,
		WithAudience(rp.ClientID()),
		WithNonce(func(context.Context) string { return nonce }),
	)
	claims, err := v.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, fmt.Errorf("oidc: id_token verification failed: %w", err)
	}
	return *claims, nil
}
