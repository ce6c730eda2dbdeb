package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// HandleAuthOAuthStartGET begins the hosted-provider login: generate state,
// nonce and PKCE verifier, stash them, and send the browser to the provider.
func HandleAuthOAuthStartGET(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLOAuth) {
			ginutil.TooMany(c)
			return
		}
		state := oauth2.GenerateVerifier()
		nonce := oauth2.GenerateVerifier()
		verifier := oauth2.GenerateVerifier()

		err := d.States.Put(c.Request.Context(), state, oidckit.StateData{
			Verifier:  verifier,
			Nonce:     nonce,
			ReturnURL: sanitizeReturnURL(c.Query("returnUrl")),
			CreatedAt: time.Now(),
		})
		if err != nil {
			d.logger().WithError(err).Error("oauth state store failed")
			ginutil.ServerErr(c, "login_unavailable")
			return
		}
		authgin.NoStore(c)
		c.Redirect(http.StatusFound, d.RP.AuthURL(state, nonce, oauth2.S256ChallengeFromVerifier(verifier)))
	}
}

// sanitizeReturnURL keeps redirects on-site: only absolute paths survive.
func sanitizeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	return raw
}
