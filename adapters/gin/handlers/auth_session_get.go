package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
)

// HandleAuthSessionGET reports the current caller as the gate resolved it.
// The UI polls this to render login state and plan badges.
func HandleAuthSessionGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		authgin.NoStore(c)
		view, ok := authgin.CurrentUser(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": view})
	}
}
