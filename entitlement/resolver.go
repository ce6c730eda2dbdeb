package entitlement

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/TaxEnough/taxenough/core"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// StatusCookie is the client-presented subscription state. It has no
// integrity protection and is consulted only after the authoritative sources;
// handlers must treat it as a display hint, never write policy from it.
type StatusCookie struct {
	Status string
	Plan   string
}

// ActiveEquivalent reports whether the cookie claims an active subscription.
// The legacy isPremium cookie carried "true" rather than a status.
func (c *StatusCookie) ActiveEquivalent() bool {
	if c == nil {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(c.Status))
	return s == string(core.StatusActive) || s == "true"
}

// Resolver determines the effective plan tier for a resolved subject.
// Resolution never fails: absence of evidence is free, not an error.
type Resolver struct {
	profiles oidckit.ProfileAPI
	cache    core.PlanCache
	log      logrus.FieldLogger
}

// NewResolver builds a resolver. cache may be nil to disable caching.
func NewResolver(profiles oidckit.ProfileAPI, cache core.PlanCache, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{profiles: profiles, cache: cache, log: log}
}

// Resolve applies the fixed evidence precedence and returns the effective
// tier. The claim's own tier wins, then provider metadata, then the client
// cookie, then free.
func (r *Resolver) Resolve(ctx context.Context, claim *core.Claim, cookie *StatusCookie) core.Tier {
	if claim != nil && claim.EffectiveTier() != core.TierFree {
		return claim.EffectiveTier()
	}

	if claim.Resolved() {
		if ent, ok := r.lookupMetadata(ctx, claim.Subject); ok && ent.Active() {
			return ent.Plan
		}
	}

	if cookie.ActiveEquivalent() {
		if t := core.ParseTier(cookie.Plan); t.Paid() {
			return t
		}
		return core.TierPremium
	}

	return core.TierFree
}

// lookupMetadata consults the cache, then the provider backend. Lookup
// failures are logged and swallowed; the caller falls through to the next
// evidence source.
func (r *Resolver) lookupMetadata(ctx context.Context, subject string) (core.Entitlement, bool) {
	if r.cache != nil {
		if ent, ok, err := r.cache.Get(ctx, subject); err == nil && ok {
			return ent, true
		}
	}
	if r.profiles == nil {
		return core.Entitlement{}, false
	}
	profile, err := r.profiles.Get(ctx, subject)
	if err != nil {
		if !errors.Is(err, oidckit.ErrProfileNotFound) {
			r.log.WithError(err).WithField("subject", subject).Warn("entitlement metadata lookup failed")
		}
		return core.Entitlement{}, false
	}
	ent, ok := FromProfile(profile)
	if !ok {
		return core.Entitlement{}, false
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, subject, ent); err != nil {
			r.log.WithError(err).Debug("plan cache write failed")
		}
	}
	return ent, true
}
