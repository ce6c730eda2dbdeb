package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
)

func HandleAuthLogoutPOST(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = d
		authgin.ClearSessionCookies(c)
		authgin.NoStore(c)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
