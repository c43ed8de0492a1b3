package dto

import (
	"github.com/settledhq/settled/internal/domain/order"
)

// OrderResponse is the API representation of an order, with the
// derived refundability figures surfaced for clients.
type OrderResponse struct {
	*order.Order
	Total               int64 `json:"total"`
	RefundableAmount    int64 `json:"refundable_amount"`
	RefundableTaxAmount int64 `json:"refundable_tax_amount"`
	RemainingBalance    int64 `json:"remaining_balance"`
}

// NewOrderResponse converts a domain order to an API response
func NewOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{
		Order:               o,
		Total:               o.Total(),
		RefundableAmount:    o.RefundableAmount(),
		RefundableTaxAmount: o.RefundableTaxAmount(),
		RemainingBalance:    o.RemainingBalance(),
	}
}
