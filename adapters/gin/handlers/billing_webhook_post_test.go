package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/TaxEnough/taxenough/billing"
	"github.com/TaxEnough/taxenough/core"
)

type jobRecorder struct {
	inserted []river.JobArgs
}

func (r *jobRecorder) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	r.inserted = append(r.inserted, args)
	return &rivertype.JobInsertResult{}, nil
}

type memDedupe struct {
	seen map[string]bool
}

func (d *memDedupe) Claim(_ context.Context, id string) (bool, error) {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func webhookTestDeps() (*Deps, *jobRecorder, *billing.RESTProcessor) {
	proc := billing.NewRESTProcessor("http://processor.invalid", "sk_test", "whsec_test")
	jobs := &jobRecorder{}
	return &Deps{
		Billing: proc,
		Prices:  map[string]core.Tier{"price_premium_m": core.TierPremium},
		Jobs:    jobs,
		Dedupe:  &memDedupe{},
	}, jobs, proc
}

func postWebhook(t *testing.T, h gin.HandlerFunc, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/billing/webhook", h)
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookEnqueuesSyncJob(t *testing.T) {
	deps, jobs, proc := webhookTestDeps()
	h := HandleBillingWebhookPOST(deps, nil)

	body, _ := json.Marshal(billing.Event{
		ID:      "evt_1",
		Type:    billing.EventCheckoutCompleted,
		Subject: "user-1",
		PriceID: "price_premium_m",
	})
	w := postWebhook(t, h, body, proc.SignPayload(body, time.Now()))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if len(jobs.inserted) != 1 {
		t.Fatalf("inserted %d jobs, want 1", len(jobs.inserted))
	}
	args, ok := jobs.inserted[0].(billing.SyncEntitlementArgs)
	if !ok {
		t.Fatalf("args type = %T", jobs.inserted[0])
	}
	if args.Subject != "user-1" || args.Plan != core.TierPremium || args.Status != core.StatusActive {
		t.Fatalf("args = %+v", args)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	deps, jobs, _ := webhookTestDeps()
	h := HandleBillingWebhookPOST(deps, nil)

	body, _ := json.Marshal(billing.Event{ID: "evt_1", Type: billing.EventCheckoutCompleted, Subject: "u"})
	w := postWebhook(t, h, body, "t=123,v1=deadbeef")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(jobs.inserted) != 0 {
		t.Fatal("no job should be enqueued for a bad signature")
	}
}

func TestWebhookDuplicateAckedWithoutJob(t *testing.T) {
	deps, jobs, proc := webhookTestDeps()
	h := HandleBillingWebhookPOST(deps, nil)

	body, _ := json.Marshal(billing.Event{
		ID:      "evt_dup",
		Type:    billing.EventInvoicePaid,
		Subject: "user-1",
		PriceID: "price_premium_m",
	})
	sig := proc.SignPayload(body, time.Now())
	if w := postWebhook(t, h, body, sig); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	if w := postWebhook(t, h, body, sig); w.Code != http.StatusOK {
		t.Fatalf("second delivery status = %d", w.Code)
	}
	if len(jobs.inserted) != 1 {
		t.Fatalf("inserted %d jobs, want 1", len(jobs.inserted))
	}
}

func TestWebhookIgnoredEventTypeAcked(t *testing.T) {
	deps, jobs, proc := webhookTestDeps()
	h := HandleBillingWebhookPOST(deps, nil)

	body, _ := json.Marshal(billing.Event{ID: "evt_x", Type: "payment_method.attached", Subject: "user-1"})
	w := postWebhook(t, h, body, proc.SignPayload(body, time.Now()))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(jobs.inserted) != 0 {
		t.Fatal("ignored event must not enqueue a job")
	}
}
