package billing

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"github.com/sirupsen/logrus"

	"github.com/TaxEnough/taxenough/core"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// SyncEntitlementArgs carries one webhook outcome to the background worker
// that writes it into provider user metadata. The webhook handler stays fast
// and idempotent; the slow provider write happens here with river's retries.
type SyncEntitlementArgs struct {
	EventID   string                  `json:"event_id"`
	EventType string                  `json:"event_type"`
	Subject   string                  `json:"subject"`
	PriceID   string                  `json:"price_id"`
	Status    core.SubscriptionStatus `json:"status"`
	Plan      core.Tier               `json:"plan"`
	PeriodEnd *time.Time              `json:"period_end,omitempty"`
}

func (SyncEntitlementArgs) Kind() string { return "billing.sync_entitlement" }

// SyncEntitlementWorker writes the entitlement into the provider's private
// metadata, records the event, and drops the subject's cached plan so the
// next request re-resolves.
type SyncEntitlementWorker struct {
	river.WorkerDefaults[SyncEntitlementArgs]

	Profiles oidckit.ProfileAPI
	Events   *EventStore
	Cache    core.PlanCache
	Log      logrus.FieldLogger
}

func (w *SyncEntitlementWorker) Work(ctx context.Context, job *river.Job[SyncEntitlementArgs]) error {
	args := job.Args
	ent := core.Entitlement{Status: args.Status, Plan: args.Plan, PeriodEnd: args.PeriodEnd}

	if w.Profiles != nil {
		if err := w.Profiles.UpdateSubscription(ctx, args.Subject, ent, args.PriceID); err != nil {
			// River retries with backoff; the dedupe cache already claimed
			// the event id, so a retry will not double-apply.
			return err
		}
	}
	if w.Events != nil {
		if err := w.Events.Record(ctx, args.EventID, args.EventType, args.Subject, ent); err != nil {
			w.Log.WithError(err).WithField("event_id", args.EventID).Warn("webhook event record failed")
		}
	}
	if w.Cache != nil {
		if err := w.Cache.Del(ctx, args.Subject); err != nil {
			w.Log.WithError(err).Debug("plan cache invalidation failed")
		}
	}
	w.Log.WithFields(logrus.Fields{
		"event_id": args.EventID,
		"subject":  args.Subject,
		"status":   args.Status,
		"plan":     args.Plan,
	}).Info("entitlement synced")
	return nil
}
