package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/billing"
)

type checkoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

// HandleBillingCheckoutPOST creates a processor checkout session for the
// signed-in caller and returns the URL to send the browser to.
func HandleBillingCheckoutPOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
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
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if _, known := d.Prices[req.PriceID]; !known {
			ginutil.BadRequest(c, "unknown_price")
			return
		}
		ref, err := billing.NewCheckoutReference()
		if err != nil {
			ginutil.ServerErr(c, "checkout_failed")
			return
		}
		sess, err := d.Billing.CreateCheckoutSession(c.Request.Context(), billing.CheckoutParams{
			Subject:    claim.Subject,
			Email:      claim.Email,
			PriceID:    req.PriceID,
			Reference:  ref,
			SuccessURL: d.CheckoutSuccessURL,
			CancelURL:  d.CheckoutCancelURL,
		})
		if err != nil {
			d.logger().WithError(err).Error("checkout session create failed")
			ginutil.ServerErr(c, "checkout_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": sess.ID, "url": sess.URL, "reference": ref})
	}
}
