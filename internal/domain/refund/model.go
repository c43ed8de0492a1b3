package refund

import (
	"time"

	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// Refund represents a single refund against an order. Amount is the
// principal portion and TaxAmount the tax portion, both in integer
// minor units; the processor is charged their sum.
type Refund struct {
	// Unique identifier for this refund
	ID string `json:"id" db:"id"`
	// The order_id links the refund to the order it draws down.
	// Exactly one of order_id and pledge_id is set.
	OrderID *string `json:"order_id,omitempty" db:"order_id"`
	// The pledge_id links the refund to a pledge instead of an order
	PledgeID *string `json:"pledge_id,omitempty" db:"pledge_id"`
	// The payment_id links the refund to the captured payment (optional)
	PaymentID *string `json:"payment_id,omitempty" db:"payment_id"`
	// Principal portion of the refund, tax excluded
	Amount int64 `json:"amount" db:"amount"`
	// Tax portion of the refund
	TaxAmount int64 `json:"tax_amount" db:"tax_amount"`
	// The currency field uses a three-letter ISO code (USD, EUR, GBP, etc.)
	Currency string `json:"currency" db:"currency"`
	// The refund_status mirrors the processor's lifecycle for this refund
	RefundStatus types.RefundStatus `json:"refund_status" db:"refund_status"`
	// The reason field is the merchant-facing reason for the refund
	Reason types.RefundReason `json:"reason" db:"reason"`
	// The failure_reason field is the processor's failure code (optional)
	FailureReason *string `json:"failure_reason,omitempty" db:"failure_reason"`
	// The processor_refund_id is the refund identifier at the payment processor
	ProcessorRefundID string `json:"processor_refund_id" db:"processor_refund_id"`
	// The processor_charge_id is the refunded charge at the payment processor (optional)
	ProcessorChargeID *string `json:"processor_charge_id,omitempty" db:"processor_charge_id"`
	// The processor_balance_txn_id is the balance transaction backing the refund (optional)
	ProcessorBalanceTxnID *string `json:"processor_balance_txn_id,omitempty" db:"processor_balance_txn_id"`
	// The receipt_number issued by the processor, if any (optional)
	ReceiptNumber *string `json:"receipt_number,omitempty" db:"receipt_number"`
	// The succeeded_at timestamp shows when the processor settled the refund (optional)
	SucceededAt *time.Time `json:"succeeded_at,omitempty" db:"succeeded_at"`
	// The metadata field contains additional custom key-value pairs (optional)
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	types.BaseModel
}

// TotalAmount returns the full value of the refund, tax included
func (r *Refund) TotalAmount() int64 {
	return r.Amount + r.TaxAmount
}

// Succeeded reports whether the processor has settled this refund
func (r *Refund) Succeeded() bool {
	return r.RefundStatus == types.RefundStatusSucceeded
}

// Validate validates the refund
func (r *Refund) Validate() error {
	hasOrder := r.OrderID != nil && *r.OrderID != ""
	hasPledge := r.PledgeID != nil && *r.PledgeID != ""
	if hasOrder == hasPledge {
		return ierr.NewError("refund must reference exactly one of order or pledge").
			WithHint("Exactly one of order_id and pledge_id must be set").
			Mark(ierr.ErrValidation)
	}
	if r.Amount < 0 || r.TaxAmount < 0 {
		return ierr.NewError("invalid refund amounts").
			WithHint("Refund amounts must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if r.TotalAmount() <= 0 {
		return ierr.NewError("invalid refund total").
			WithHint("Refund total must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if r.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := r.RefundStatus.Validate(); err != nil {
		return ierr.NewError("invalid refund status").
			WithHint("Refund status is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := r.Reason.Validate(); err != nil {
		return ierr.NewError("invalid refund reason").
			WithHint("Refund reason is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the refund
func (r *Refund) TableName() string {
	return "refunds"
}
