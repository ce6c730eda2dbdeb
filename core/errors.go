package core

import "errors"

// Error taxonomy for the authentication/entitlement layer.
//
// Unauthenticated and UpstreamUnavailable are deliberately distinct: a caller
// that cannot tell "you have no identity" from "the identity backend is down"
// cannot make a sane availability decision.
var (
	// ErrMalformedCredential marks input that is not structurally a
	// three-part dot-separated token. Never surfaced as a 5xx.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrUnauthenticated means every verification stage was exhausted
	// without producing a claim.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized means the caller is authenticated but the route's
	// policy (plan tier or admin allow-list) rejects them.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstreamUnavailable means an identity or entitlement backend could
	// not be reached within its timeout budget.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
