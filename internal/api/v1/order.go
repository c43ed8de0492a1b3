package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settledhq/settled/internal/dto"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/service"
)

// OrderHandler handles order-related endpoints
type OrderHandler struct {
	orderService  service.OrderService
	refundService service.RefundService
	logger        *logger.Logger
}

func NewOrderHandler(
	orderService service.OrderService,
	refundService service.RefundService,
	logger *logger.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		refundService: refundService,
		logger:        logger,
	}
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")

	o, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// ListOrderRefunds handles GET /v1/orders/:id/refunds
func (h *OrderHandler) ListOrderRefunds(c *gin.Context) {
	id := c.Param("id")

	refunds, err := h.refundService.ListByOrderID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]*dto.RefundResponse, 0, len(refunds))
	for _, rec := range refunds {
		items = append(items, dto.NewRefundResponse(rec))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
