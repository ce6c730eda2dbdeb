package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/identity"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
	"github.com/TaxEnough/taxenough/password"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func HandleAuthRegisterPOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLRegister) {
			ginutil.TooMany(c)
			return
		}
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if err := password.Validate(req.Password); err != nil {
			ginutil.BadRequest(c, "weak_password")
			return
		}
		hash, err := password.HashArgon2id(req.Password)
		if err != nil {
			ginutil.ServerErr(c, "registration_failed")
			return
		}
		u, err := d.Users.Create(c.Request.Context(), req.Email, identity.DeriveName(req.Email, req.Name), hash)
		if err != nil {
			if errors.Is(err, identity.ErrEmailTaken) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email_taken"})
				return
			}
			d.logger().WithError(err).Error("user create failed")
			ginutil.ServerErr(c, "registration_failed")
			return
		}
		issueSession(c, d, u, core.SourceLocal)
	}
}

// issueSession signs a session token for the user, sets the auth cookie, and
// writes the response body. Shared by register, login and the OAuth callback.
func issueSession(c *gin.Context, d *Deps, u *identity.User, source core.Source) {
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
		if err := d.Audit.LogSignin(c.Request.Context(), u.ID.String(), source, c.ClientIP(), c.Request.UserAgent(), time.Now()); err != nil {
			d.logger().WithError(err).Warn("signin audit write failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tok,
		"user": gin.H{
			"user_id": u.ID.String(),
			"email":   u.Email,
			"name":    u.Name,
		},
	})
}
