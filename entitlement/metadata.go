// Package entitlement resolves a subject's effective plan tier from the
// available evidence, in fixed precedence order: claim tier, provider-side
// metadata (private over public), client status cookie, free.
package entitlement

import (
	"strings"
	"time"

	"github.com/TaxEnough/taxenough/core"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// FromProfile extracts subscription evidence from a provider profile.
// Private metadata takes precedence over public metadata.
func FromProfile(p *oidckit.Profile) (core.Entitlement, bool) {
	if p == nil {
		return core.Entitlement{Status: core.StatusNone, Plan: core.TierFree}, false
	}
	if e, ok := fromMetadata(p.PrivateMetadata); ok {
		return e, true
	}
	return fromMetadata(p.PublicMetadata)
}

func fromMetadata(m map[string]any) (core.Entitlement, bool) {
	sub, ok := m["subscription"].(map[string]any)
	if !ok {
		return core.Entitlement{Status: core.StatusNone, Plan: core.TierFree}, false
	}
	e := core.Entitlement{Status: core.StatusNone, Plan: core.TierFree}
	if s, ok := sub["status"].(string); ok {
		e.Status = parseStatus(s)
	}
	if e.Status == core.StatusActive {
		// Plan defaults to premium when the status is active but the plan
		// field is absent.
		e.Plan = core.TierPremium
		if p, ok := sub["plan"].(string); ok && p != "" {
			e.Plan = core.ParseTier(p)
		}
	}
	if raw, ok := sub["period_end"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.PeriodEnd = &ts
		}
	}
	return e, true
}

func parseStatus(s string) core.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(core.StatusActive):
		return core.StatusActive
	case string(core.StatusCanceled):
		return core.StatusCanceled
	case string(core.StatusPastDue):
		return core.StatusPastDue
	case string(core.StatusTrialing):
		return core.StatusTrialing
	default:
		return core.StatusNone
	}
}
