package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settledhq/settled/internal/dto"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/service"
)

// RefundHandler handles refund-related endpoints
type RefundHandler struct {
	refundService service.RefundService
	logger        *logger.Logger
}

func NewRefundHandler(
	refundService service.RefundService,
	logger *logger.Logger,
) *RefundHandler {
	return &RefundHandler{
		refundService: refundService,
		logger:        logger,
	}
}

// CreateRefund handles POST /v1/refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Request body is invalid").
			Mark(ierr.ErrValidation))
		return
	}

	rec, err := h.refundService.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRefundResponse(rec))
}

// GetRefund handles GET /v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.refundService.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRefundResponse(rec))
}
