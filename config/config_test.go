package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_TOKEN_SECRET", "")
	t.Setenv("ADMIN_EMAILS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.TokenSecret == "" {
		t.Fatal("development load must fill a token secret")
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.StrictFallback {
		t.Fatal("strict fallback must default off")
	}
	if len(cfg.Gate.AdminEmails) != 1 || cfg.Gate.AdminEmails[0] != "info.taxenough@gmail.com" {
		t.Fatalf("AdminEmails = %v", cfg.Gate.AdminEmails)
	}
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_TOKEN_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://x")

	if _, err := Load(); err == nil {
		t.Fatal("production load without AUTH_TOKEN_SECRET must fail")
	}

	t.Setenv("AUTH_TOKEN_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("production load without DATABASE_URL must fail")
	}
}

func TestLoadPricesAndAdminList(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("BILLING_PRICE_BASIC_MONTHLY", "price_123")
	t.Setenv("BILLING_PRICE_PREMIUM_YEARLY", "price_456")
	t.Setenv("ADMIN_EMAILS", " Info.TaxEnough@gmail.com , ops@taxenough.com ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Billing.Prices["price_123"]; got != "basic" {
		t.Fatalf("price_123 tier = %q", got)
	}
	if got := cfg.Billing.Prices["price_456"]; got != "premium" {
		t.Fatalf("price_456 tier = %q", got)
	}
	if len(cfg.Gate.AdminEmails) != 2 || cfg.Gate.AdminEmails[0] != "info.taxenough@gmail.com" {
		t.Fatalf("AdminEmails = %v", cfg.Gate.AdminEmails)
	}
}
