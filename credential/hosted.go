package credential

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/entitlement"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// KeySetSource supplies the issuer identity and its current JWKS.
// *oidckit.RelyingParty satisfies it.
type KeySetSource interface {
	Issuer() string
	KeySet(ctx context.Context) (jwk.Set, error)
}

// HostedProvider verifies credentials as hosted-provider session tokens: the
// signature is checked against the issuer's JWKS, then the full profile is
// fetched by subject id from the backend API.
type HostedProvider struct {
	rp       KeySetSource
	profiles oidckit.ProfileAPI
}

// NewHostedProvider builds the hosted verification stage.
func NewHostedProvider(rp KeySetSource, profiles oidckit.ProfileAPI) *HostedProvider {
	return &HostedProvider{rp: rp, profiles: profiles}
}

func (p *HostedProvider) Source() core.Source { return core.SourceHosted }

func (p *HostedProvider) Verify(ctx context.Context, credential string) (*core.VerifyResult, error) {
	if p.rp == nil {
		return nil, fmt.Errorf("hosted provider not configured")
	}
	keySet, err := p.rp.KeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUpstreamUnavailable, err)
	}
	claims, err := oidckit.NewTokenVerifier(p.rp.Issuer(), keySet).Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, core.ErrUnauthenticated
	}

	claim := &core.Claim{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Source:  core.SourceHosted,
	}
	if p.profiles != nil {
		profile, err := p.profiles.Get(ctx, claims.Subject)
		if err != nil {
			// The token itself verified; degrade to token-only identity
			// rather than failing the stage.
			return &core.VerifyResult{Claim: claim}, nil
		}
		if profile.Email != "" {
			claim.Email = profile.Email
		}
		if profile.Name != "" {
			claim.Name = profile.Name
		}
		if ent, ok := entitlement.FromProfile(profile); ok && ent.Active() {
			claim.Tier = ent.Plan
		}
	}
	return &core.VerifyResult{Claim: claim}, nil
}
