package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/entitlement"
)

// HandleBillingActivatePOST is the post-checkout fast path. The success page
// calls it before the webhook has landed: confirm the entitlement against
// the provider when reachable, then set the hint cookies so the UI unlocks
// immediately. The authoritative state still arrives via webhook.
func HandleBillingActivatePOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckout) {
			ginutil.TooMany(c)
			return
		}
		claim, ok := authgin.ClaimFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}

		ent := core.Entitlement{Status: core.StatusActive, Plan: core.TierPremium}
		if d.Profiles == nil {
			authgin.SetEntitlementCookies(c, ent.Status, ent.Plan)
			authgin.NoStore(c)
			c.JSON(http.StatusOK, gin.H{"status": ent.Status, "plan": ent.Plan})
			return
		}
		if profile, err := d.Profiles.Get(c.Request.Context(), claim.Subject); err == nil {
			if fromMeta, found := entitlement.FromProfile(profile); found {
				ent = fromMeta
			}
		} else {
			d.logger().WithError(err).Debug("activation profile fetch failed, trusting checkout redirect")
		}

		if d.Cache != nil {
			// Drop any stale free-tier entry so the next gate pass re-reads.
			_ = d.Cache.Del(c.Request.Context(), claim.Subject)
		}

		authgin.SetEntitlementCookies(c, ent.Status, ent.Plan)
		authgin.NoStore(c)
		c.JSON(http.StatusOK, gin.H{"status": ent.Status, "plan": ent.Plan})
	}
}
