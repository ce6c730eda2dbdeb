package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
)

// HandleReportsSummaryGET returns per-symbol aggregates over the caller's
// ledger.
func HandleReportsSummaryGET(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, ok := authgin.ClaimFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		summaries, err := d.Ledger.Summarize(c.Request.Context(), claim.Subject)
		if err != nil {
			d.logger().WithError(err).Error("ledger summarize failed")
			ginutil.ServerErr(c, "summary_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"symbols": summaries})
	}
}
