package core

import (
	"context"
	"time"
)

// CredentialVerifier resolves a bearer credential to a trusted Claim.
// Implementations may return a refreshed replacement credential when the
// original was expired but structurally valid; callers must propagate it back
// to the client.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*VerifyResult, error)
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	Claim *Claim
	// RefreshedCredential is non-empty when the verifying stage re-signed an
	// expired-but-valid token. The response must carry it back to the client.
	RefreshedCredential string
}

// EntitlementSource reads subscription evidence for a subject from the
// authoritative provider-side metadata store.
type EntitlementSource interface {
	Entitlement(ctx context.Context, subject string) (Entitlement, bool, error)
}

// PlanCache is a short-lived cache of resolved entitlements keyed by subject.
type PlanCache interface {
	Get(ctx context.Context, subject string) (Entitlement, bool, error)
	Put(ctx context.Context, subject string, e Entitlement) error
	Del(ctx context.Context, subject string) error
}

// SigninAuditLogger records login events to an external sink.
// Implementations should be best-effort; a failed audit write must never fail
// the login itself.
type SigninAuditLogger interface {
	LogSignin(ctx context.Context, subject string, source Source, ip, userAgent string, at time.Time) error
}
