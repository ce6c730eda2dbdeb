package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/billing"
)

// SignatureHeader carries the processor's timestamped HMAC over the payload.
const SignatureHeader = "Webhook-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

// HandleBillingWebhookPOST ingests processor events. The handler verifies
// the signature, claims the event id, maps the event to an entitlement, and
// enqueues the slow provider-metadata write as a background job. Replies are
// 200 for anything verified, including duplicates and ignored event types,
// so the processor stops retrying.
func HandleBillingWebhookPOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLWebhook) {
			ginutil.TooMany(c)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			ginutil.BadRequest(c, "unreadable_body")
			return
		}
		ev, err := d.Billing.VerifyWebhook(payload, c.GetHeader(SignatureHeader))
		if err != nil {
			if errors.Is(err, billing.ErrBadSignature) {
				ginutil.BadRequest(c, "invalid_signature")
				return
			}
			ginutil.BadRequest(c, "invalid_payload")
			return
		}

		first, err := d.Dedupe.Claim(c.Request.Context(), ev.ID)
		if err != nil {
			// Without the dedupe answer we cannot safely ack; let the
			// processor retry.
			d.logger().WithError(err).Error("webhook dedupe failed")
			ginutil.ServerErr(c, "dedupe_unavailable")
			return
		}
		if !first {
			c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
			return
		}

		ent, ok := billing.MapEvent(ev, d.Prices)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
			return
		}

		_, err = d.Jobs.Insert(c.Request.Context(), billing.SyncEntitlementArgs{
			EventID:   ev.ID,
			EventType: ev.Type,
			Subject:   ev.Subject,
			PriceID:   ev.PriceID,
			Status:    ent.Status,
			Plan:      ent.Plan,
			PeriodEnd: ent.PeriodEnd,
		}, nil)
		if err != nil {
			d.logger().WithError(err).Error("entitlement sync enqueue failed")
			ginutil.ServerErr(c, "enqueue_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
