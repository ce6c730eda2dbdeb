package main

import (
	"github.com/gin-gonic/gin"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/gin/handlers"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
)

// buildRouter mounts the API. The gate middleware runs first on every
// request; route handlers only see requests the policy allowed.
func buildRouter(g *authgin.Gate, d *handlers.Deps, rl ginutil.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(g.Middleware())

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handlers.HandleAuthLoginPOST(d, rl))
		auth.POST("/register", handlers.HandleAuthRegisterPOST(d, rl))
		auth.POST("/logout", handlers.HandleAuthLogoutPOST(d))
		auth.GET("/session", handlers.HandleAuthSessionGET())
		if d.RP != nil {
			auth.GET("/oauth/start", handlers.HandleAuthOAuthStartGET(d, rl))
			auth.GET("/oauth/callback", handlers.HandleAuthOAuthCallbackGET(d, rl))
		}
	}

	billing := r.Group("/api/billing")
	{
		billing.POST("/checkout", handlers.HandleBillingCheckoutPOST(d, rl))
		billing.POST("/webhook", handlers.HandleBillingWebhookPOST(d, rl))
		billing.POST("/activate", handlers.HandleBillingActivatePOST(d, rl))
	}

	tx := r.Group("/api/transactions")
	{
		tx.GET("", handlers.HandleTransactionsGET(d))
		tx.POST("", handlers.HandleTransactionsPOST(d, rl))
		tx.DELETE("/:id", handlers.HandleTransactionDELETE(d))
	}

	r.GET("/api/reports/summary", handlers.HandleReportsSummaryGET(d))

	return r
}
