package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/ledger"
)

const transactionsPageLimit = 500

// HandleTransactionsGET lists the caller's transactions, newest first.
func HandleTransactionsGET(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, ok := authgin.ClaimFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		txs, err := d.Ledger.List(c.Request.Context(), claim.Subject, transactionsPageLimit)
		if err != nil {
			d.logger().WithError(err).Error("transaction list failed")
			ginutil.ServerErr(c, "list_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs})
	}
}

type transactionRequest struct {
	Date   string `json:"date" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
	Side   string `json:"side" binding:"required,oneof=buy sell"`
	Shares string `json:"shares" binding:"required"`
	Price  string `json:"price" binding:"required"`
	Fees   string `json:"fees"`
	Notes  string `json:"notes"`
}

// HandleTransactionsPOST records a trade for the caller.
func HandleTransactionsPOST(d *Deps, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLLedger) {
			ginutil.TooMany(c)
			return
		}
		claim, ok := authgin.ClaimFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		var req transactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			ginutil.BadRequest(c, "invalid_date")
			return
		}
		tx, err := d.Ledger.Create(c.Request.Context(), ledger.Transaction{
			Owner:  claim.Subject,
			Date:   date,
			Symbol: req.Symbol,
			Side:   ledger.Side(req.Side),
			Shares: req.Shares,
			Price:  req.Price,
			Fees:   req.Fees,
			Notes:  req.Notes,
		})
		if err != nil {
			d.logger().WithError(err).Error("transaction create failed")
			ginutil.ServerErr(c, "create_failed")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transaction": tx})
	}
}

// HandleTransactionDELETE removes one of the caller's transactions.
func HandleTransactionDELETE(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, ok := authgin.ClaimFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_id")
			return
		}
		if err := d.Ledger.Delete(c.Request.Context(), claim.Subject, id); err != nil {
			if ledger.IsNotFound(err) {
				ginutil.NotFound(c, "transaction_not_found")
				return
			}
			d.logger().WithError(err).Error("transaction delete failed")
			ginutil.ServerErr(c, "delete_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
