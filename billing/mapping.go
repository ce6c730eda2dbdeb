package billing

import (
	"strings"

	"github.com/TaxEnough/taxenough/core"
)

// MapEvent turns a verified webhook event into the entitlement to record for
// its subject. The price table is the static allow-list from configuration;
// events carrying an unknown price id report ok=false and are dropped.
func MapEvent(ev *Event, prices map[string]core.Tier) (ent core.Entitlement, ok bool) {
	if ev == nil || ev.Subject == "" {
		return core.Entitlement{}, false
	}
	switch ev.Type {
	case EventCheckoutCompleted, EventInvoicePaid:
		plan, known := prices[ev.PriceID]
		if !known {
			return core.Entitlement{}, false
		}
		return core.Entitlement{Status: core.StatusActive, Plan: plan, PeriodEnd: ev.PeriodEnd}, true

	case EventSubscriptionUpdated:
		plan, known := prices[ev.PriceID]
		if !known {
			return core.Entitlement{}, false
		}
		status := parseStatus(ev.Status)
		if status != core.StatusActive {
			// Non-active statuses keep the plan on record but do not
			// authorize access; gating only honors active.
			return core.Entitlement{Status: status, Plan: plan, PeriodEnd: ev.PeriodEnd}, true
		}
		return core.Entitlement{Status: core.StatusActive, Plan: plan, PeriodEnd: ev.PeriodEnd}, true

	case EventSubscriptionDeleted:
		return core.Entitlement{Status: core.StatusCanceled, Plan: core.TierFree}, true
	}
	return core.Entitlement{}, false
}

func parseStatus(s string) core.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(core.StatusActive):
		return core.StatusActive
	case string(core.StatusPastDue):
		return core.StatusPastDue
	case string(core.StatusTrialing):
		return core.StatusTrialing
	case string(core.StatusCanceled):
		return core.StatusCanceled
	default:
		return core.StatusNone
	}
}
