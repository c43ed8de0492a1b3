package dto

import (
	"github.com/settledhq/settled/internal/domain/refund"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// CreateRefundRequest is the API request to refund part of an order.
// Amount is the principal in minor units; tax is allocated
// proportionally by the server.
type CreateRefundRequest struct {
	OrderID string             `json:"order_id" binding:"required"`
	Amount  int64              `json:"amount" binding:"required"`
	Reason  types.RefundReason `json:"reason" binding:"required"`
	Comment *string            `json:"comment,omitempty"`
}

func (r *CreateRefundRequest) Validate() error {
	if r.OrderID == "" {
		return ierr.NewError("order_id is required").
			WithHint("Order ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Amount <= 0 {
		return ierr.NewError("amount must be greater than 0").
			WithHint("Refund amount must be a positive integer in minor units").
			Mark(ierr.ErrValidation)
	}
	if err := r.Reason.Validate(); err != nil {
		return ierr.NewError("invalid refund reason").
			WithHintf("Refund reason %s is not supported", r.Reason).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundResponse is the API representation of a refund
type RefundResponse struct {
	*refund.Refund
}

// NewRefundResponse converts a domain refund to an API response
func NewRefundResponse(r *refund.Refund) *RefundResponse {
	return &RefundResponse{Refund: r}
}
