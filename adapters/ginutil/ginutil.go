package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rate limit bucket names. Each bucket carries its own limit and window,
// configured where the limiter is constructed.
const (
	RLLogin    = "auth:login"
	RLRegister = "auth:register"
	RLOAuth    = "auth:oauth"
	RLCheckout = "billing:checkout"
	RLWebhook  = "billing:webhook"
	RLLedger   = "ledger:write"
)

// RateLimiter is the minimal interface handlers need. Both the Redis and
// in-memory limiters satisfy it.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed checks the caller's IP against the named bucket. A nil limiter
// or a limiter error fails open: rate limiting protects endpoints, it must
// not take them down.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Forbidden(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code})
}

func NotFound(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}
