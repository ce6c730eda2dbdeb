package authgin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/credential"
	"github.com/TaxEnough/taxenough/entitlement"
	"github.com/TaxEnough/taxenough/gate"
)

// RefreshedTokenHeader carries a re-signed session token back to the client
// alongside the cookie, for API callers that manage the credential
// themselves.
const RefreshedTokenHeader = "X-Auth-Refreshed-Token"

// Gate is the request middleware: classify the route, verify whatever
// credential the request carries, resolve the plan tier, then enforce the
// route policy.
type Gate struct {
	Rules    gate.Rules
	Chain    *credential.Chain
	Resolver *entitlement.Resolver
	Log      logrus.FieldLogger

	// IgnoreStatusCookie stops the unsigned subscription cookies from
	// counting as entitlement evidence; they become UI display hints only.
	// Off by default: trusting the cookie is the historical behavior, same
	// availability tradeoff as the verifier's decode fallback. Wired to the
	// strict-fallback toggle in the server.
	IgnoreStatusCookie bool
}

func NewGate(rules gate.Rules, chain *credential.Chain, resolver *entitlement.Resolver, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{Rules: rules, Chain: chain, Resolver: resolver, Log: log}
}

// Middleware returns the gin handler enforcing the route policy. Verification
// runs for every request that carries a credential, including public routes,
// so public pages still see the caller's identity.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		class := g.Rules.Classify(c.Request.Host, path)

		var claim *core.Claim
		if cred := CredentialFrom(c); cred != "" {
			res, err := g.Chain.Verify(c.Request.Context(), cred)
			switch {
			case err == nil:
				claim = res.Claim
				if res.RefreshedCredential != "" {
					SetAuthCookie(c, res.RefreshedCredential)
					c.Header(RefreshedTokenHeader, res.RefreshedCredential)
				}
			case errors.Is(err, core.ErrUpstreamUnavailable):
				// Distinct from a bad credential: the verifier could not
				// reach its backend. Do not fall through to a login
				// redirect loop.
				NoStore(c)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream_unavailable"})
				return
			default:
				g.Log.WithError(err).WithField("path", path).Debug("credential rejected")
			}
		}

		var cookie *entitlement.StatusCookie
		if !g.IgnoreStatusCookie {
			cookie = statusCookieFrom(c)
		}
		tier := g.Resolver.Resolve(c.Request.Context(), claim, cookie)

		d := g.Rules.Decide(class, path, claim, tier)
		switch d.Action {
		case gate.ActionAllow:
			setCaller(c, claim, tier)
			c.Next()
		case gate.ActionRewrite:
			c.Request.URL.Path = d.Rewrite
			setCaller(c, claim, tier)
			c.Next()
		case gate.ActionRedirect:
			NoStore(c)
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		case gate.ActionDeny:
			NoStore(c)
			c.AbortWithStatusJSON(d.Status, gin.H{"error": denyCode(d.Status)})
		}
	}
}

func denyCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication_required"
	case http.StatusForbidden:
		return "forbidden"
	default:
		return "denied"
	}
}

// CredentialFrom extracts the session credential: Authorization bearer token
// first, then the auth cookie.
func CredentialFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if v, err := c.Cookie(CookieAuth); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}

// statusCookieFrom reads the unsigned subscription hint cookies, preferring
// the status cookie over the legacy isPremium boolean.
func statusCookieFrom(c *gin.Context) *entitlement.StatusCookie {
	status, _ := c.Cookie(CookieStatus)
	if status == "" {
		status, _ = c.Cookie(CookiePremium)
	}
	if status == "" {
		return nil
	}
	plan, _ := c.Cookie(CookiePlan)
	return &entitlement.StatusCookie{Status: status, Plan: plan}
}
