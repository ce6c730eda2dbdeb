package authgin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/credential"
	"github.com/TaxEnough/taxenough/entitlement"
	"github.com/TaxEnough/taxenough/gate"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
)

const testAdminEmail = "info.taxenough@gmail.com"

func newTestEngine(t *testing.T, strict bool, providers ...credential.Provider) (*gin.Engine, *jwtkit.HMACSigner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := jwtkit.NewHMACSigner("test-secret-test-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	if providers == nil {
		providers = []credential.Provider{credential.NewLocalProvider(signer)}
	}
	chain := credential.NewChain(providers, strict, nil)
	resolver := entitlement.NewResolver(nil, nil, nil)
	g := NewGate(gate.Default([]string{testAdminEmail}, "blog"), chain, resolver, nil)

	r := gin.New()
	r.Use(g.Middleware())
	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "served:%s", c.Request.URL.Path)
	})
	return r, signer
}

func sessionToken(t *testing.T, signer *jwtkit.HMACSigner, userID, email string) string {
	t.Helper()
	tok, err := signer.IssueSession(context.Background(), userID, jwtkit.SessionClaims{Email: email})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return tok
}

func doReq(r *gin.Engine, method, target string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Host = "taxenough.com"
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGateAnonymousProtectedRedirectsToLogin(t *testing.T) {
	r, _ := newTestEngine(t, false)

	w := doReq(r, http.MethodGet, "/dashboard", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/login?returnUrl=/dashboard" {
		t.Fatalf("Location = %q", got)
	}
}

func TestGateFreeTierPremiumRouteRedirectsToPricing(t *testing.T) {
	r, signer := newTestEngine(t, false)
	tok := sessionToken(t, signer, "user-1", "user@example.com")

	w := doReq(r, http.MethodGet, "/transactions", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/pricing?premium=required" {
		t.Fatalf("Location = %q", got)
	}
}

func TestGateActiveCookieUnlocksPremiumRoute(t *testing.T) {
	r, signer := newTestEngine(t, false)
	tok := sessionToken(t, signer, "user-1", "user@example.com")

	w := doReq(r, http.MethodGet, "/transactions", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
		req.AddCookie(&http.Cookie{Name: CookieStatus, Value: "active"})
		req.AddCookie(&http.Cookie{Name: CookiePlan, Value: "premium"})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestGateAdminAllowlist(t *testing.T) {
	r, signer := newTestEngine(t, false)

	admin := sessionToken(t, signer, "admin-1", testAdminEmail)
	w := doReq(r, http.MethodGet, "/admin/blog", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: admin})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", w.Code)
	}

	other := sessionToken(t, signer, "user-2", "someone@example.com")
	w = doReq(r, http.MethodGet, "/admin/blog", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: other})
	})
	if w.Code != http.StatusFound {
		t.Fatalf("non-admin status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/dashboard" {
		t.Fatalf("non-admin Location = %q", got)
	}
}

func TestGateAuthenticatedOnAuthPageRedirectsToDashboard(t *testing.T) {
	r, signer := newTestEngine(t, false)
	tok := sessionToken(t, signer, "user-1", "user@example.com")

	w := doReq(r, http.MethodGet, "/login", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/dashboard" {
		t.Fatalf("Location = %q", got)
	}
}

func TestGateAnonymousOnAuthPageAllowed(t *testing.T) {
	r, _ := newTestEngine(t, false)
	if w := doReq(r, http.MethodGet, "/login", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestGateBlogSubdomainRewrites(t *testing.T) {
	r, _ := newTestEngine(t, false)

	w := doReq(r, http.MethodGet, "/tax-loss-harvesting", func(req *http.Request) {
		req.Host = "blog.taxenough.com"
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "served:/blog/tax-loss-harvesting" {
		t.Fatalf("rewritten path = %q", got)
	}
}

func TestGateBlogSubdomainBeatsOtherClasses(t *testing.T) {
	r, _ := newTestEngine(t, false)

	// Even an admin path is served as blog content on the blog host.
	w := doReq(r, http.MethodGet, "/admin/blog", func(req *http.Request) {
		req.Host = "blog.taxenough.com:443"
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "served:/blog/admin/blog" {
		t.Fatalf("rewritten path = %q", got)
	}
}

func TestGateAPIRoutesGetJSONDenials(t *testing.T) {
	r, signer := newTestEngine(t, false)

	w := doReq(r, http.MethodGet, "/api/transactions", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}

	tok := sessionToken(t, signer, "user-1", "user@example.com")
	w = doReq(r, http.MethodGet, "/api/transactions", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("free-tier status = %d, want 403", w.Code)
	}
}

func TestGatePublicRouteIdentifiesCaller(t *testing.T) {
	r := gin.New()
	gin.SetMode(gin.TestMode)

	signer, err := jwtkit.NewHMACSigner("test-secret-test-secret", time.Hour, 0)
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	chain := credential.NewChain([]credential.Provider{credential.NewLocalProvider(signer)}, false, nil)
	g := NewGate(gate.Default(nil, "blog"), chain, entitlement.NewResolver(nil, nil, nil), nil)
	r.Use(g.Middleware())
	r.GET("/pricing", func(c *gin.Context) {
		view, ok := CurrentUser(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "user:%s", view.UserID)
	})

	tok := sessionToken(t, signer, "user-9", "user@example.com")
	w := doReq(r, http.MethodGet, "/pricing", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if got := w.Body.String(); got != "user:user-9" {
		t.Fatalf("body = %q", got)
	}
}

func TestGateBearerHeaderBeatsCookie(t *testing.T) {
	r, signer := newTestEngine(t, false)
	good := sessionToken(t, signer, "user-1", "user@example.com")

	w := doReq(r, http.MethodGet, "/dashboard", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+good)
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: "not.a.token"})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestGateStrictModeIgnoresStatusCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer, err := jwtkit.NewHMACSigner("test-secret-test-secret", time.Hour, 0)
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	chain := credential.NewChain([]credential.Provider{credential.NewLocalProvider(signer)}, true, nil)
	g := NewGate(gate.Default(nil, "blog"), chain, entitlement.NewResolver(nil, nil, nil), nil)
	g.IgnoreStatusCookie = true

	r := gin.New()
	r.Use(g.Middleware())
	r.NoRoute(func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tok := sessionToken(t, signer, "user-1", "user@example.com")
	w := doReq(r, http.MethodGet, "/transactions", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
		req.AddCookie(&http.Cookie{Name: CookieStatus, Value: "active"})
		req.AddCookie(&http.Cookie{Name: CookiePlan, Value: "premium"})
	})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/pricing?premium=required" {
		t.Fatalf("Location = %q", got)
	}
}

type downProvider struct{}

func (downProvider) Source() core.Source { return core.SourceHosted }
func (downProvider) Verify(context.Context, string) (*core.VerifyResult, error) {
	return nil, core.ErrUpstreamUnavailable
}

func TestGateStrictUpstreamOutageReturns503(t *testing.T) {
	r, signer := newTestEngine(t, true, downProvider{})
	tok := sessionToken(t, signer, "user-1", "user@example.com")

	w := doReq(r, http.MethodGet, "/dashboard", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestGateRefreshedTokenPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifySigner, err := jwtkit.NewHMACSigner("test-secret-test-secret", time.Hour, 48*time.Hour)
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	chain := credential.NewChain([]credential.Provider{credential.NewLocalProvider(verifySigner)}, false, nil)
	g := NewGate(gate.Default(nil, "blog"), chain, entitlement.NewResolver(nil, nil, nil), nil)

	r := gin.New()
	r.Use(g.Middleware())
	r.NoRoute(func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Expired an hour ago, well inside the refresh window.
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtkit.SessionClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("test-secret-test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	w := doReq(r, http.MethodGet, "/dashboard", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieAuth, Value: tok})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(RefreshedTokenHeader) == "" {
		t.Fatal("expected refreshed token header")
	}
}
