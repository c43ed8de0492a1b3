package payment

import (
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// Payment represents a captured payment at the processor. It is the
// bridge between processor charge identifiers and our Order or Pledge
// records: refund webhooks only carry charge references, so resolution
// goes charge → payment → order/pledge.
type Payment struct {
	// Unique identifier for this payment
	ID string `json:"id" db:"id"`
	// The processor_charge_id is the charge identifier at the payment processor
	ProcessorChargeID string `json:"processor_charge_id" db:"processor_charge_id"`
	// The processor_payment_intent_id groups the charge at the processor (optional)
	ProcessorPaymentIntentID *string `json:"processor_payment_intent_id,omitempty" db:"processor_payment_intent_id"`
	// The order_id links the payment to an order.
	// Exactly one of order_id and pledge_id is set.
	OrderID *string `json:"order_id,omitempty" db:"order_id"`
	// The pledge_id links the payment to a pledge
	PledgeID *string `json:"pledge_id,omitempty" db:"pledge_id"`
	// Principal captured, tax excluded, in integer minor units
	Amount int64 `json:"amount" db:"amount"`
	// Tax captured on top of amount
	TaxAmount int64 `json:"tax_amount" db:"tax_amount"`
	// The currency field uses a three-letter ISO code (USD, EUR, GBP, etc.)
	Currency string `json:"currency" db:"currency"`
	// The metadata field contains additional custom key-value pairs (optional)
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.ProcessorChargeID == "" {
		return ierr.NewError("invalid charge id").
			WithHint("Charge id is invalid").
			Mark(ierr.ErrValidation)
	}
	hasOrder := p.OrderID != nil && *p.OrderID != ""
	hasPledge := p.PledgeID != nil && *p.PledgeID != ""
	if hasOrder == hasPledge {
		return ierr.NewError("payment must reference exactly one of order or pledge").
			WithHint("Exactly one of order_id and pledge_id must be set").
			Mark(ierr.ErrValidation)
	}
	if p.Amount <= 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the payment
func (p *Payment) TableName() string {
	return "payments"
}
