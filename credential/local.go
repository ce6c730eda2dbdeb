package credential

import (
	"context"

	"github.com/TaxEnough/taxenough/core"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
)

// LocalProvider verifies self-issued session tokens signed with the
// server-held secret. Expired-but-valid tokens inside the refresh window are
// re-signed; the replacement travels back in VerifyResult.
type LocalProvider struct {
	signer *jwtkit.HMACSigner
}

// NewLocalProvider builds the self-issued token stage.
func NewLocalProvider(signer *jwtkit.HMACSigner) *LocalProvider {
	return &LocalProvider{signer: signer}
}

func (p *LocalProvider) Source() core.Source { return core.SourceLocal }

func (p *LocalProvider) Verify(ctx context.Context, credential string) (*core.VerifyResult, error) {
	claims, refreshed, err := p.signer.VerifySession(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &core.VerifyResult{
		Claim: &core.Claim{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Tier:    claims.Plan,
			Source:  core.SourceLocal,
		},
		RefreshedCredential: refreshed,
	}, nil
}
