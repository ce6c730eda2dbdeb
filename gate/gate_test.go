package gate

import (
	"testing"

	"github.com/TaxEnough/taxenough/core"
)

func testRules() Rules {
	return Default([]string{"info.taxenough@gmail.com"}, "blog")
}

func TestClassify_FirstMatchOrder(t *testing.T) {
	r := testRules()
	cases := []struct {
		host, path string
		want       Class
	}{
		{"taxenough.com", "/", ClassPublic},
		{"taxenough.com", "/pricing", ClassPublic},
		{"taxenough.com", "/blog/how-to-file", ClassPublic},
		{"taxenough.com", "/api/billing/webhook", ClassPublic},
		{"taxenough.com", "/login", ClassAuthPage},
		{"taxenough.com", "/register", ClassAuthPage},
		{"taxenough.com", "/admin/blog", ClassAdmin},
		{"taxenough.com", "/transactions", ClassPremium},
		{"taxenough.com", "/reports/2025", ClassPremium},
		{"taxenough.com", "/api/transactions", ClassPremium},
		{"taxenough.com", "/api/reports/summary", ClassPremium},
		{"taxenough.com", "/dashboard", ClassProtected},
		{"taxenough.com", "/settings", ClassProtected},
		{"blog.taxenough.com", "/some-post", ClassBlogRewrite},
	}
	for _, tc := range cases {
		if got := r.Classify(tc.host, tc.path); got != tc.want {
			t.Errorf("Classify(%q, %q) = %v, want %v", tc.host, tc.path, got, tc.want)
		}
	}
}

func TestClassify_BlogSubdomainBeatsEverything(t *testing.T) {
	r := testRules()
	// Even premium and public paths rewrite when the host matches.
	for _, path := range []string{"/", "/transactions", "/admin/blog", "/login"} {
		if got := r.Classify("blog.taxenough.com:443", path); got != ClassBlogRewrite {
			t.Errorf("Classify(blog host, %q) = %v, want ClassBlogRewrite", path, got)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	r := testRules()
	for _, path := range []string{"/", "/login", "/transactions", "/admin/x", "/anything"} {
		first := r.Classify("taxenough.com", path)
		second := r.Classify("taxenough.com", path)
		if first != second {
			t.Fatalf("classification not stable for %q: %v then %v", path, first, second)
		}
	}
}

func TestDecide_BlogRewrite(t *testing.T) {
	r := testRules()
	d := r.Decide(ClassBlogRewrite, "/my-post", nil, core.TierFree)
	if d.Action != ActionRewrite || d.Rewrite != "/blog/my-post" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDecide_UnauthenticatedProtectedRedirectsToLogin(t *testing.T) {
	r := testRules()
	d := r.Decide(ClassProtected, "/dashboard", nil, core.TierFree)
	if d.Action != ActionRedirect || d.Location != "/login?returnUrl=/dashboard" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDecide_FreeTierPremiumRedirectsToPricing(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Email: "x@y.z", Source: core.SourceLocal}
	d := r.Decide(ClassPremium, "/transactions", claim, core.TierFree)
	if d.Action != ActionRedirect || d.Location != "/pricing?premium=required" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDecide_PaidTierPremiumAllows(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Source: core.SourceLocal}
	for _, tier := range []core.Tier{core.TierBasic, core.TierPremium} {
		if d := r.Decide(ClassPremium, "/transactions", claim, tier); d.Action != ActionAllow {
			t.Fatalf("tier %v: decision = %+v", tier, d)
		}
	}
}

func TestDecide_PremiumAPIGets403NotRedirect(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Source: core.SourceLocal}
	d := r.Decide(ClassPremium, "/api/transactions", claim, core.TierFree)
	if d.Action != ActionDeny || d.Status != 403 {
		t.Fatalf("decision = %+v", d)
	}
	d = r.Decide(ClassPremium, "/api/transactions", nil, core.TierFree)
	if d.Action != ActionDeny || d.Status != 401 {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDecide_AdminForbiddenGoesToDashboardNotLogin(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Email: "not-admin@example.com", Source: core.SourceHosted}
	d := r.Decide(ClassAdmin, "/admin/blog", claim, core.TierFree)
	if d.Action != ActionRedirect || d.Location != "/dashboard" {
		t.Fatalf("decision = %+v (authenticated-but-forbidden must not go to login)", d)
	}
}

func TestDecide_AdminAllowlisted(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Email: "info.taxenough@gmail.com", Source: core.SourceHosted}
	if d := r.Decide(ClassAdmin, "/admin/blog", claim, core.TierFree); d.Action != ActionAllow {
		t.Fatalf("decision = %+v", d)
	}
	// Case-insensitive match.
	claim.Email = "Info.TaxEnough@Gmail.com"
	if d := r.Decide(ClassAdmin, "/admin/blog", claim, core.TierFree); d.Action != ActionAllow {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDecide_AuthPageRedirectsWhenSignedIn(t *testing.T) {
	r := testRules()
	claim := &core.Claim{Subject: "u-1", Source: core.SourceLocal}
	d := r.Decide(ClassAuthPage, "/login", claim, core.TierFree)
	if d.Action != ActionRedirect || d.Location != "/dashboard" {
		t.Fatalf("decision = %+v", d)
	}
	if d := r.Decide(ClassAuthPage, "/login", nil, core.TierFree); d.Action != ActionAllow {
		t.Fatalf("decision = %+v", d)
	}
}
