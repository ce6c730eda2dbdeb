package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/TaxEnough/taxenough/core"
)

// Signer issues signed tokens.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., HS256, RS256).
	Algorithm() string
	// Sign creates a signed token with provided claims.
	Sign(ctx context.Context, claims jwt.MapClaims) (token string, err error)
}

// SessionClaims are the application claims embedded in self-issued tokens.
type SessionClaims struct {
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
	Plan  core.Tier `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// HMACSigner signs and verifies self-issued session tokens with a server-held
// secret.
type HMACSigner struct {
	secret []byte
	ttl    time.Duration
	// refreshWindow is how long after expiry a token with a valid signature
	// may still be exchanged for a fresh one.
	refreshWindow time.Duration
}

// NewHMACSigner builds a signer for self-issued tokens.
func NewHMACSigner(secret string, ttl, refreshWindow time.Duration) (*HMACSigner, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty token secret")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &HMACSigner{secret: []byte(secret), ttl: ttl, refreshWindow: refreshWindow}, nil
}

func (s *HMACSigner) Algorithm() string { return jwt.SigningMethodHS256.Alg() }

func (s *HMACSigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IssueSession creates a session token for the given user.
func (s *HMACSigner) IssueSession(ctx context.Context, userID string, sc SessionClaims) (string, error) {
	now := time.Now()
	sc.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(s.secret)
}

// VerifySession verifies a self-issued token. If the token's signature is
// valid but it expired inside the refresh window, a fresh replacement token is
// returned alongside the claims; the caller must propagate it back to the
// client so the stored credential stays current.
func (s *HMACSigner) VerifySession(ctx context.Context, credential string) (*SessionClaims, string, error) {
	keyFn := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("jwt: unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}

	var claims SessionClaims
	_, err := jwt.ParseWithClaims(credential, &claims, keyFn)
	if err == nil {
		if claims.Subject == "" {
			return nil, "", core.ErrUnauthenticated
		}
		return &claims, "", nil
	}
	if !errors.Is(err, jwt.ErrTokenExpired) || s.refreshWindow <= 0 {
		return nil, "", err
	}

	// Expired: re-check the signature alone, then decide on refresh.
	claims = SessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(credential, &claims, keyFn); err != nil {
		return nil, "", err
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, "", core.ErrUnauthenticated
	}
	if time.Since(claims.ExpiresAt.Time) > s.refreshWindow {
		return nil, "", jwt.ErrTokenExpired
	}
	refreshed, err := s.IssueSession(ctx, claims.Subject, claims)
	if err != nil {
		return nil, "", err
	}
	return &claims, refreshed, nil
}

// RSASigner is an in-memory RSA signer. The mock hosted-provider issuer in
// the testing package uses it to mint tokens that validate against its JWKS.
type RSASigner struct {
	key *rsa.PrivateKey
	kid string
}

func NewRSASigner(bits int, kid string) (*RSASigner, error) {
	if bits == 0 {
		bits = 2048
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSASigner{key: k, kid: kid}, nil
}

func (s *RSASigner) Algorithm() string           { return jwt.SigningMethodRS256.Alg() }
func (s *RSASigner) KID() string                 { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey   { return &s.key.PublicKey }
func (s *RSASigner) PrivateKey() *rsa.PrivateKey { return s.key }

func (s *RSASigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.key)
}
