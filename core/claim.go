package core

import (
	"strings"
	"time"
)

// Tier is the effective subscription plan used for gating.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// ParseTier normalizes a plan string; anything unknown resolves to free.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TierBasic):
		return TierBasic
	case string(TierPremium):
		return TierPremium
	default:
		return TierFree
	}
}

// Paid reports whether the tier unlocks premium-gated routes.
func (t Tier) Paid() bool { return t == TierBasic || t == TierPremium }

// SubscriptionStatus mirrors the billing processor's subscription lifecycle.
// Only StatusActive authorizes premium routes; all other statuses collapse to
// "no access" for gating purposes.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusNone     SubscriptionStatus = "none"
)

// Source identifies which verification stage produced a claim.
type Source string

const (
	// SourceHosted means the hosted identity provider verified the credential
	// and the profile was fetched from its backend API.
	SourceHosted Source = "hosted"
	// SourceLocal means the credential was a self-issued token verified with
	// the server-held secret.
	SourceLocal Source = "local"
	// SourceDecoded means the claim was synthesized from an unverified decode.
	// Trust accordingly.
	SourceDecoded Source = "decoded"
)

// Claim is the normalized per-request identity record. It is created from a
// bearer credential, never persisted, and discarded at end of request.
type Claim struct {
	Subject string
	Email   string
	Name    string
	Tier    Tier
	Source  Source
}

// Resolved reports whether the claim carries a usable identity.
func (c *Claim) Resolved() bool { return c != nil && c.Subject != "" }

// EffectiveTier treats an unset tier as free.
func (c *Claim) EffectiveTier() Tier {
	if c == nil || c.Tier == "" {
		return TierFree
	}
	return c.Tier
}

// Entitlement is the subscription evidence read from provider metadata or the
// client status cookie. The core only reads it; webhook processing writes it.
type Entitlement struct {
	Status    SubscriptionStatus `json:"status"`
	Plan      Tier               `json:"plan"`
	PeriodEnd *time.Time         `json:"period_end,omitempty"`
}

// Active reports whether the entitlement authorizes paid access.
func (e Entitlement) Active() bool { return e.Status == StatusActive }
