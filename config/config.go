// Package config loads all runtime configuration from environment variables.
// There is one source of truth for every policy value the route gate and the
// verifier chain consume (admin allow-list, price table, fallback toggle), so
// no literal has to be repeated at call sites.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TaxEnough/taxenough/core"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	// ListenAddr is the HTTP bind address, e.g. ":8080".
	ListenAddr string
	// BaseURL is the externally visible origin, used for redirect targets.
	BaseURL string
	// Env is "production", "staging" or "development".
	Env string

	Auth    Auth
	Hosted  Hosted
	Billing Billing
	Gate    Gate

	// DatabaseURL is the Postgres DSN.
	DatabaseURL string
	// RedisURL is optional; rate limiting and caching degrade to in-memory
	// implementations when empty.
	RedisURL string
}

// Auth configures self-issued session tokens and the verifier chain.
type Auth struct {
	// TokenSecret signs self-issued session tokens (HS256).
	TokenSecret string
	// TokenTTL is the session token lifetime. Default 7 days, matching the
	// auth cookie expiry.
	TokenTTL time.Duration
	// RefreshWindow is how long after expiry a structurally valid token may
	// still be exchanged for a fresh one.
	RefreshWindow time.Duration
	// StrictFallback disables the last-resort unverified-decode stage. When
	// false (the historical behavior) a claim synthesized from a bare decode
	// is granted premium so a provider outage does not lock out paying users.
	StrictFallback bool
}

// Hosted configures the hosted identity provider (verification keys, login
// flow, and the backend profile API).
type Hosted struct {
	// IssuerURL is the OIDC issuer; JWKS and endpoints come from discovery.
	IssuerURL string
	// ClientID / ClientSecret drive the authorization-code login flow.
	ClientID     string
	ClientSecret string
	// RedirectURL is the registered OAuth callback.
	RedirectURL string
	// APIBaseURL is the provider's backend user API root.
	APIBaseURL string
	// APIKey authorizes backend API calls (profile fetch, metadata writes).
	APIKey string
	// CallTimeout bounds every outbound provider call. One retry is allowed
	// on transport errors within this budget.
	CallTimeout time.Duration
}

// Billing configures the payment processor integration.
type Billing struct {
	// APIBaseURL / APIKey reach the processor's REST API for checkout
	// session creation.
	APIBaseURL string
	APIKey     string
	// WebhookSecret verifies webhook signatures.
	WebhookSecret string
	// Prices maps processor price identifiers to plan tiers. Webhook events
	// carrying a price outside this table are ignored.
	Prices map[string]core.Tier
	// SuccessURL / CancelURL are where checkout sends the browser back.
	SuccessURL string
	CancelURL  string
}

// Gate configures route classification policy.
type Gate struct {
	// AdminEmails is the admin allow-list, lowercase.
	AdminEmails []string
	// BlogHost is the subdomain label whose requests get path-rewritten to
	// the blog section, e.g. "blog".
	BlogHost string
}

// Load reads configuration from the environment. It fails fast on values that
// are required in production and fills development defaults otherwise.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		BaseURL:     getenv("APP_BASE_URL", "http://localhost:8080"),
		Env:         strings.ToLower(getenv("APP_ENV", "development")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Auth: Auth{
			TokenSecret:    os.Getenv("AUTH_TOKEN_SECRET"),
			TokenTTL:       getdur("AUTH_TOKEN_TTL", 7*24*time.Hour),
			RefreshWindow:  getdur("AUTH_REFRESH_WINDOW", 30*24*time.Hour),
			StrictFallback: getbool("AUTH_STRICT_FALLBACK", false),
		},
		Hosted: Hosted{
			IssuerURL:    os.Getenv("HOSTED_ISSUER_URL"),
			ClientID:     os.Getenv("HOSTED_CLIENT_ID"),
			ClientSecret: os.Getenv("HOSTED_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("HOSTED_REDIRECT_URL"),
			APIBaseURL:   os.Getenv("HOSTED_API_URL"),
			APIKey:       os.Getenv("HOSTED_API_KEY"),
			CallTimeout:  getdur("HOSTED_CALL_TIMEOUT", 5*time.Second),
		},
		Billing: Billing{
			APIBaseURL:    os.Getenv("BILLING_API_URL"),
			APIKey:        os.Getenv("BILLING_API_KEY"),
			WebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
			Prices:        loadPrices(),
			SuccessURL:    getenv("BILLING_SUCCESS_URL", "/dashboard?checkout=success"),
			CancelURL:     getenv("BILLING_CANCEL_URL", "/pricing?checkout=canceled"),
		},
		Gate: Gate{
			AdminEmails: splitEmails(getenv("ADMIN_EMAILS", "info.taxenough@gmail.com")),
			BlogHost:    getenv("BLOG_SUBDOMAIN", "blog"),
		},
	}

	if cfg.Auth.TokenSecret == "" {
		if cfg.IsProd() {
			return nil, fmt.Errorf("AUTH_TOKEN_SECRET is required in production")
		}
		cfg.Auth.TokenSecret = "dev-only-token-secret"
	}
	if cfg.IsProd() && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required in production")
	}
	return cfg, nil
}

// IsProd reports whether the process runs with production requirements.
func (c *Config) IsProd() bool { return c.Env == "production" || c.Env == "prod" }

// loadPrices builds the price-id -> tier table from the four documented
// price variables. Unset variables simply leave the entry out.
func loadPrices() map[string]core.Tier {
	prices := make(map[string]core.Tier)
	for env, tier := range map[string]core.Tier{
		"BILLING_PRICE_BASIC_MONTHLY":   core.TierBasic,
		"BILLING_PRICE_BASIC_YEARLY":    core.TierBasic,
		"BILLING_PRICE_PREMIUM_MONTHLY": core.TierPremium,
		"BILLING_PRICE_PREMIUM_YEARLY":  core.TierPremium,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			prices[v] = tier
		}
	}
	return prices
}

func splitEmails(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getdur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
