package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/membership-ledger/internal/api_gateway/handler"
	"github.com/membership-ledger/internal/api_gateway/middleware"
)

// handlers groups the HTTP handlers mounted by setupRouter
type handlers struct {
	accounts *handler.AccountHandler
	entries  *handler.EntryHandler
	members  *handler.MemberHandler
	webhooks *handler.WebhookHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", h.accounts.Create)
			accounts.GET("/:id", h.accounts.GetByID)
			accounts.PATCH("/:id", h.accounts.Rename)
			accounts.DELETE("/:id", h.accounts.Deactivate)
			accounts.GET("/:id/balance", h.accounts.Balance)
			accounts.GET("/:id/entries", h.accounts.Entries)
		}

		entries := v1.Group("/entries")
		{
			entries.POST("", h.entries.Create)
			entries.GET("/:id", h.entries.GetByID)
			entries.POST("/:id/reverse", h.entries.Reverse)
		}

		v1.POST("/levels", h.members.CreateLevel)

		members := v1.Group("/members")
		{
			members.POST("", h.members.Create)
			members.GET("/:id", h.members.GetByID)
			members.PUT("/:id/customer", h.members.LinkCustomer)
		}

		// processor notifications are authenticated by signature, not by session
		v1.POST("/webhooks/payments", h.webhooks.Receive)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
