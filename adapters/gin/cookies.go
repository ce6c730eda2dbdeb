package authgin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TaxEnough/taxenough/core"
)

// Cookie names. auth_token carries the session JWT; the rest are the
// unsigned entitlement hints the UI and the fast-path resolver read.
const (
	CookieAuth    = "auth_token"
	CookieStatus  = "subscription_status"
	CookiePremium = "isPremium"
	CookiePlan    = "subscription_plan"
)

const (
	authCookieMaxAge        = 7 * 24 * 60 * 60   // 7 days, matches the token TTL
	entitlementCookieMaxAge = 180 * 24 * 60 * 60 // 180 days
)

func secureCookies(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

// SetAuthCookie writes the session credential. HttpOnly and SameSite=Lax:
// the token must not be readable from page scripts.
func SetAuthCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieAuth,
		Value:    token,
		Path:     "/",
		MaxAge:   authCookieMaxAge,
		HttpOnly: true,
		Secure:   secureCookies(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// SetEntitlementCookies writes the unsigned subscription hint cookies. These
// are deliberately readable by page scripts so the UI can render plan state
// without a round trip; the server never trusts them for paid access beyond
// the documented fallback.
func SetEntitlementCookies(c *gin.Context, status core.SubscriptionStatus, plan core.Tier) {
	secure := secureCookies(c)
	set := func(name, value string) {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   entitlementCookieMaxAge,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	set(CookieStatus, string(status))
	if status == core.StatusActive && plan.Paid() {
		set(CookiePremium, "true")
	} else {
		set(CookiePremium, "false")
	}
	set(CookiePlan, string(plan))
}

// ClearSessionCookies expires the auth cookie and the entitlement hints.
func ClearSessionCookies(c *gin.Context) {
	for _, name := range []string{CookieAuth, CookieStatus, CookiePremium, CookiePlan} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// NoStore disables caching on responses that vary by credential.
func NoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
