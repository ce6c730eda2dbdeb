package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/identity"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// HandleAuthOAuthCallbackGET finishes the hosted-provider login: validate
// state, exchange the code, upsert the local account, and establish the
// session.
func HandleAuthOAuthCallbackGET(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLOAuth) {
			ginutil.TooMany(c)
			return
		}
		state := c.Query("state")
		code := c.Query("code")
		if state == "" || code == "" {
			ginutil.BadRequest(c, "invalid_callback")
			return
		}
		sd, ok, err := d.States.Get(c.Request.Context(), state)
		if err != nil || !ok {
			if err != nil {
				d.logger().WithError(err).Error("oauth state lookup failed")
			}
			ginutil.BadRequest(c, "invalid_state")
			return
		}
		// One-shot: a replayed state must not complete a second login.
		_ = d.States.Del(c.Request.Context(), state)

		claims, err := oidckit.Exchange(c.Request.Context(), d.RP, code, sd.Verifier, sd.Nonce)
		if err != nil {
			d.logger().WithError(err).Warn("oauth code exchange failed")
			ginutil.Unauthorized(c, "exchange_failed")
			return
		}

		u, err := d.Users.UpsertHosted(c.Request.Context(), claims.Subject,
			claims.Email, identity.DeriveName(claims.Email, claims.Name))
		if err != nil {
			d.logger().WithError(err).Error("hosted account upsert failed")
			ginutil.ServerErr(c, "login_failed")
			return
		}

		tok, err := d.Signer.IssueSession(c.Request.Context(), u.ID.String(), jwtkit.SessionClaims{
			Email: u.Email,
			Name:  u.Name,
		})
		if err != nil {
			d.logger().WithError(err).Error("session token issue failed")
			ginutil.ServerErr(c, "session_failed")
			return
		}
		authgin.SetAuthCookie(c, tok)
		authgin.NoStore(c)

		if d.Audit != nil {
			if err := d.Audit.LogSignin(c.Request.Context(), u.ID.String(), core.SourceHosted, c.ClientIP(), c.Request.UserAgent(), time.Now()); err != nil {
				d.logger().WithError(err).Warn("signin audit write failed")
			}
		}

		target := sd.ReturnURL
		if target == "" {
			target = d.DashboardPath
		}
		c.Redirect(http.StatusFound, target)
	}
}
