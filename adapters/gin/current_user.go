package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/TaxEnough/taxenough/core"
)

const (
	ctxClaimKey = "auth.claim"
	ctxTierKey  = "auth.tier"
)

// setCaller stores the verified claim and resolved tier for downstream
// handlers.
func setCaller(c *gin.Context, claim *core.Claim, tier core.Tier) {
	c.Set(ctxClaimKey, claim)
	c.Set(ctxTierKey, tier)
}

// ClaimFromGin returns the verified claim set by the Gate middleware, or
// false for anonymous requests.
func ClaimFromGin(c *gin.Context) (*core.Claim, bool) {
	v, ok := c.Get(ctxClaimKey)
	if !ok {
		return nil, false
	}
	claim, ok := v.(*core.Claim)
	if !ok || !claim.Resolved() {
		return nil, false
	}
	return claim, true
}

// TierFromGin returns the resolved tier for the request. Anonymous requests
// resolve to free.
func TierFromGin(c *gin.Context) core.Tier {
	v, ok := c.Get(ctxTierKey)
	if !ok {
		return core.TierFree
	}
	t, ok := v.(core.Tier)
	if !ok {
		return core.TierFree
	}
	return t
}

// UserView is the caller snapshot returned by the session endpoint.
type UserView struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Plan      core.Tier `json:"plan"`
	IsPremium bool      `json:"is_premium"`
	Source    string    `json:"source"`
}

// CurrentUser returns a unified user snapshot for handlers. The second
// return is false for anonymous requests.
func CurrentUser(c *gin.Context) (UserView, bool) {
	claim, ok := ClaimFromGin(c)
	if !ok {
		return UserView{Plan: core.TierFree, Source: "none"}, false
	}
	tier := TierFromGin(c)
	return UserView{
		UserID:    claim.Subject,
		Email:     claim.Email,
		Name:      claim.Name,
		Plan:      tier,
		IsPremium: tier.Paid(),
		Source:    string(claim.Source),
	}, true
}
