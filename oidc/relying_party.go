package oidckit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/oauth2"
)

// RelyingParty holds discovery-backed configuration for the hosted provider.
// JWKS fetches go through a jwk.Cache so session-token verification does not
// hit the network per request.
type RelyingParty struct {
	issuer      string
	clientID    string
	jwksURL     string
	oauthConfig *oauth2.Config
	jwksCache   *jwk.Cache
}

type discoveryDoc struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// NewRelyingParty discovers provider metadata and constructs a relying party.
func NewRelyingParty(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*RelyingParty, error) {
	trimmed := strings.TrimRight(issuer, "/")
	if trimmed == "" {
		return nil, errors.New("oidc: issuer is empty")
	}
	doc, err := discover(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	effectiveIssuer := doc.Issuer
	if effectiveIssuer == "" {
		effectiveIssuer = issuer
	}
	cache := jwk.NewCache(ctx)
	if err := cache.Register(doc.JWKSURI); err != nil {
		return nil, fmt.Errorf("oidc: register jwks: %w", err)
	}
	return &RelyingParty{
		issuer:   effectiveIssuer,
		clientID: clientID,
		jwksURL:  doc.JWKSURI,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  doc.AuthorizationEndpoint,
				TokenURL: doc.TokenEndpoint,
			},
		},
		jwksCache: cache,
	}, nil
}

// OAuthConfig returns the OAuth2 configuration derived from discovery.
func (rp *RelyingParty) OAuthConfig() *oauth2.Config { return rp.oauthConfig }

// Issuer returns the issuer URL associated with the relying party.
func (rp *RelyingParty) Issuer() string { return rp.issuer }

// ClientID returns the OAuth client_id for the relying party.
func (rp *RelyingParty) ClientID() string { return rp.clientID }

// KeySet returns the current JWKS, refreshing through the cache as needed.
func (rp *RelyingParty) KeySet(ctx context.Context) (jwk.Set, error) {
	if rp.jwksURL == "" {
		return nil, errors.New("oidc: missing jwks_uri")
	}
	return rp.jwksCache.Get(ctx, rp.jwksURL)
}

// AuthURL builds an authorization URL carrying state, nonce and PKCE challenge.
func (rp *RelyingParty) AuthURL(state, nonce, codeChallenge string) string {
	return rp.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func discover(ctx context.Context, issuer string) (*discoveryDoc, error) {
	discoveryURL := issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oidc: discovery failed: %s", resp.Status)
	}
	var doc discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	discoveredIssuer := strings.TrimRight(doc.Issuer, "/")
	if discoveredIssuer != "" && discoveredIssuer != issuer {
		return nil, fmt.Errorf("oidc: issuer mismatch: %s", doc.Issuer)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.JWKSURI == "" {
		return nil, errors.New("oidc: discovery missing endpoints")
	}
	return &doc, nil
}
