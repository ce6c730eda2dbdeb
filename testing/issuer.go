// Package testing provides a mock hosted-identity issuer for tests. It runs
// an HTTP server that answers OIDC discovery and serves a JWKS, and it signs
// tokens that validate against that JWKS, so the verifier chain can be
// exercised without a real provider.
//
// Example usage:
//
//	issuer := taxtesting.NewIssuer()
//	defer issuer.Close()
//
//	tok := issuer.SessionToken("user_123", "test@example.com")
package testing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	jwtkit "github.com/TaxEnough/taxenough/jwt"
)

// Issuer is a mock hosted identity provider. It serves
// /.well-known/openid-configuration and /.well-known/jwks.json, and mints
// RS256 tokens against its own key pair.
type Issuer struct {
	server *httptest.Server
	signer *jwtkit.RSASigner
}

// NewIssuer starts a mock issuer. Call Close when done.
func NewIssuer() *Issuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("testing: rsa signer: " + err.Error())
	}
	iss := &Issuer{signer: signer}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", iss.handleDiscovery)
	mux.HandleFunc("/.well-known/jwks.json", iss.handleJWKS)
	iss.server = httptest.NewServer(mux)
	return iss
}

// URL returns the issuer origin. Use it as HOSTED_ISSUER_URL in tests.
func (i *Issuer) URL() string { return i.server.URL }

// Close shuts down the test server.
func (i *Issuer) Close() { i.server.Close() }

// Issuer satisfies the verifier chain's key-set source.
func (i *Issuer) Issuer() string { return i.server.URL }

// KeySet returns the issuer's public keys as a jwk.Set, without going over
// the network.
func (i *Issuer) KeySet(ctx context.Context) (jwk.Set, error) {
	key, err := jwk.FromRaw(i.signer.PublicKey())
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, i.signer.KID()); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, i.signer.Algorithm()); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return set, nil
}

// SessionToken mints a verified-looking session token for the given subject.
func (i *Issuer) SessionToken(subject, email string) string {
	return i.TokenWithClaims(subject, email, nil)
}

// TokenWithClaims mints a token with extra claims merged over the defaults.
func (i *Issuer) TokenWithClaims(subject, email string, extra map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iss":   i.URL(),
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := i.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("testing: sign token: " + err.Error())
	}
	return tok
}

// ExpiredToken mints a token that expired an hour ago.
func (i *Issuer) ExpiredToken(subject, email string) string {
	return i.TokenWithClaims(subject, email, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
		"issuer": %q,
		"authorization_endpoint": %q,
		"token_endpoint": %q,
		"jwks_uri": %q
	}`, i.URL(), i.URL()+"/oauth/authorize", i.URL()+"/oauth/token", i.URL()+"/.well-known/jwks.json")
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	k := jwtkit.RSAPublicToJWK(i.signer.PublicKey(), i.signer.KID(), i.signer.Algorithm())
	jwtkit.ServeJWKS(w, r, jwtkit.JWKS{Keys: []jwtkit.JWK{k}})
}
