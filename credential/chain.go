// Package credential resolves a bearer credential to a trusted identity claim
// by trying providers in fixed precedence order: the hosted identity provider
// first, then self-issued tokens, then (unless strict mode is on) a bare
// unverified decode.
package credential

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/token"
)

// Provider verifies a credential against one identity backend.
type Provider interface {
	Source() core.Source
	Verify(ctx context.Context, credential string) (*core.VerifyResult, error)
}

// Chain applies providers in order, short-circuiting on the first success.
// Provider errors are swallowed and fall through; they are not hard
// rejections.
type Chain struct {
	providers []Provider
	// strict disables the last-resort unverified-decode fallback.
	strict bool
	log    logrus.FieldLogger
}

// NewChain builds a verifier chain over the given providers.
func NewChain(providers []Provider, strict bool, log logrus.FieldLogger) *Chain {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Chain{providers: providers, strict: strict, log: log}
}

// Verify resolves the credential. Outcomes:
//   - first provider to succeed wins
//   - structurally invalid input: core.ErrMalformedCredential
//   - all stages exhausted with at least one backend outage, strict mode:
//     core.ErrUpstreamUnavailable
//   - otherwise: core.ErrUnauthenticated
//
// When strict mode is off, exhaustion falls back to an unverified decode; a
// claim synthesized that way is force-set to premium so a transient provider
// failure does not lock out a paying user. That availability-over-strictness
// tradeoff is the historical behavior and is covered by a regression test.
func (ch *Chain) Verify(ctx context.Context, credential string) (*core.VerifyResult, error) {
	credential = strings.TrimSpace(credential)
	if strings.Count(credential, ".") != 2 {
		return nil, core.ErrMalformedCredential
	}

	var upstreamErr error
	for _, p := range ch.providers {
		res, err := p.Verify(ctx, credential)
		if err == nil && res != nil && res.Claim.Resolved() {
			return res, nil
		}
		if errors.Is(err, core.ErrUpstreamUnavailable) {
			upstreamErr = err
		}
		ch.log.WithError(err).WithField("source", p.Source()).Debug("verification stage failed")
	}

	if !ch.strict {
		if d, err := token.Decode(credential); err == nil && d.Subject != "" {
			ch.log.WithField("subject", d.Subject).Warn("credential accepted via unverified decode fallback")
			return &core.VerifyResult{Claim: &core.Claim{
				Subject: d.Subject,
				Email:   d.Email,
				Name:    d.Name,
				Tier:    core.TierPremium,
				Source:  core.SourceDecoded,
			}}, nil
		}
	}

	if upstreamErr != nil && ch.strict {
		return nil, upstreamErr
	}
	return nil, core.ErrUnauthenticated
}
