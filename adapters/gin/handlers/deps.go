// Package handlers holds the HTTP route handlers. One file per route,
// named after the path and method it serves.
package handlers

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"

	"github.com/TaxEnough/taxenough/billing"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/identity"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
	"github.com/TaxEnough/taxenough/ledger"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// JobEnqueuer is the slice of the river client handlers need. Satisfied by
// *river.Client; tests substitute a recorder.
type JobEnqueuer interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// WebhookDedupe claims webhook event ids; the first claim wins.
type WebhookDedupe interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

// Deps bundles the collaborators the route handlers share. Built once in
// main and passed explicitly; there are no package-level singletons.
type Deps struct {
	Users    *identity.Store
	Signer   *jwtkit.HMACSigner
	RP       *oidckit.RelyingParty
	States   oidckit.StateCache
	Profiles oidckit.ProfileAPI
	Billing  billing.Processor
	Prices   map[string]core.Tier
	Jobs     JobEnqueuer
	Dedupe   WebhookDedupe
	Ledger   *ledger.Store
	Cache    core.PlanCache
	Audit    core.SigninAuditLogger
	Log      logrus.FieldLogger

	// Redirect targets for the checkout round trip.
	CheckoutSuccessURL string
	CheckoutCancelURL  string
	// DashboardPath is where logins land without a return URL.
	DashboardPath string
}

func (d *Deps) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}
