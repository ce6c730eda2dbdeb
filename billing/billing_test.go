package billing

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TaxEnough/taxenough/core"
)

var testPrices = map[string]core.Tier{
	"price_basic":   core.TierBasic,
	"price_premium": core.TierPremium,
}

func TestMapEvent(t *testing.T) {
	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		ev   Event
		want core.Entitlement
		ok   bool
	}{
		{
			name: "checkout completed",
			ev:   Event{Type: EventCheckoutCompleted, Subject: "u-1", PriceID: "price_premium", PeriodEnd: &end},
			want: core.Entitlement{Status: core.StatusActive, Plan: core.TierPremium, PeriodEnd: &end},
			ok:   true,
		},
		{
			name: "invoice paid basic",
			ev:   Event{Type: EventInvoicePaid, Subject: "u-1", PriceID: "price_basic"},
			want: core.Entitlement{Status: core.StatusActive, Plan: core.TierBasic},
			ok:   true,
		},
		{
			name: "subscription updated past_due keeps plan but not access",
			ev:   Event{Type: EventSubscriptionUpdated, Subject: "u-1", PriceID: "price_premium", Status: "past_due"},
			want: core.Entitlement{Status: core.StatusPastDue, Plan: core.TierPremium},
			ok:   true,
		},
		{
			name: "subscription deleted",
			ev:   Event{Type: EventSubscriptionDeleted, Subject: "u-1"},
			want: core.Entitlement{Status: core.StatusCanceled, Plan: core.TierFree},
			ok:   true,
		},
		{
			name: "unknown price dropped",
			ev:   Event{Type: EventCheckoutCompleted, Subject: "u-1", PriceID: "price_mystery"},
			ok:   false,
		},
		{
			name: "unknown type dropped",
			ev:   Event{Type: "customer.created", Subject: "u-1"},
			ok:   false,
		},
		{
			name: "missing subject dropped",
			ev:   Event{Type: EventCheckoutCompleted, PriceID: "price_basic"},
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MapEvent(&tc.ev, testPrices)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if got.Status != tc.want.Status || got.Plan != tc.want.Plan {
				t.Fatalf("entitlement = %+v, want %+v", got, tc.want)
			}
			if ok && got.Active() != (tc.want.Status == core.StatusActive) {
				t.Fatalf("Active() = %v for status %v", got.Active(), got.Status)
			}
		})
	}
}

func TestVerifyWebhook_RoundTrip(t *testing.T) {
	p := NewRESTProcessor("", "", "whsec_test")
	payload, _ := json.Marshal(Event{
		ID: "evt_1", Type: EventCheckoutCompleted, Subject: "u-1", PriceID: "price_basic",
	})
	sig := p.SignPayload(payload, time.Now())

	ev, err := p.VerifyWebhook(payload, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != "evt_1" || ev.Subject != "u-1" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestVerifyWebhook_RejectsTamperedPayload(t *testing.T) {
	p := NewRESTProcessor("", "", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","subject":"u-1"}`)
	sig := p.SignPayload(payload, time.Now())
	tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed","subject":"u-EVIL"}`)

	if _, err := p.VerifyWebhook(tampered, sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestVerifyWebhook_RejectsStaleTimestamp(t *testing.T) {
	p := NewRESTProcessor("", "", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","subject":"u-1"}`)
	sig := p.SignPayload(payload, time.Now().Add(-time.Hour))

	if _, err := p.VerifyWebhook(payload, sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestVerifyWebhook_RejectsWrongSecret(t *testing.T) {
	signer := NewRESTProcessor("", "", "whsec_a")
	verifier := NewRESTProcessor("", "", "whsec_b")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","subject":"u-1"}`)

	if _, err := verifier.VerifyWebhook(payload, signer.SignPayload(payload, time.Now())); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestNewCheckoutReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		ref, err := NewCheckoutReference()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(ref, "co_") || len(ref) < 10 {
			t.Fatalf("reference %q has unexpected shape", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}
