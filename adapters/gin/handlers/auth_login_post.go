package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/identity"
	"github.com/TaxEnough/taxenough/password"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func HandleAuthLoginPOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLLogin) {
			ginutil.TooMany(c)
			return
		}
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		u, err := d.Users.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, identity.ErrNotFound) {
				d.logger().WithError(err).Error("user lookup failed")
			}
			// Same answer for unknown email and wrong password.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		if u.PasswordHash == "" || !verifyAndMigrate(c, d, u, req.Password) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		issueSession(c, d, u, core.SourceLocal)
	}
}

// verifyAndMigrate checks the password against the stored hash. Accounts
// still carrying a legacy bcrypt hash are transparently rehashed to argon2id
// on successful login.
func verifyAndMigrate(c *gin.Context, d *Deps, u *identity.User, plaintext string) bool {
	if password.IsBcryptHash(u.PasswordHash) {
		ok, err := password.VerifyBcrypt(u.PasswordHash, plaintext)
		if err != nil || !ok {
			return false
		}
		if newHash, err := password.HashArgon2id(plaintext); err == nil {
			if err := d.Users.UpdatePasswordHash(c.Request.Context(), u.ID, newHash); err != nil {
				d.logger().WithError(err).Warn("bcrypt rehash failed")
			}
		}
		return true
	}
	ok, err := password.VerifyArgon2id(u.PasswordHash, plaintext)
	return err == nil && ok
}
