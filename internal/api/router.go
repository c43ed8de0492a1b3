package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/settledhq/settled/internal/api/v1"
	"github.com/settledhq/settled/internal/config"
	"github.com/settledhq/settled/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Order   *v1.OrderHandler
	Refund  *v1.RefundHandler
	Webhook *v1.WebhookHandler
}

func NewRouter(cfg *config.Configuration, handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	refunds := router.Group("/refunds")
	{
		refunds.POST("", handlers.Refund.CreateRefund)
		refunds.GET("/:id", handlers.Refund.GetRefund)
	}

	orders := router.Group("/orders")
	{
		orders.GET("/:id", handlers.Order.GetOrder)
		orders.GET("/:id/refunds", handlers.Order.ListOrderRefunds)
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/stripe", handlers.Webhook.HandleStripeWebhook)
	}
}
