package pledge

import (
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// PledgeState is the lifecycle of a pledge
type PledgeState string

const (
	PledgeStateCreated  PledgeState = "created"
	PledgeStatePending  PledgeState = "pending"
	PledgeStateRefunded PledgeState = "refunded"
)

// Pledge is an alternate payment target sharing the refund machinery
// with orders. Pledges have no tax split: amounts are refunded as-is.
type Pledge struct {
	// Unique identifier for this pledge
	ID string `json:"id" db:"id"`
	// The processor_payment_intent_id ties the pledge to the processor payment
	ProcessorPaymentIntentID string `json:"processor_payment_intent_id" db:"processor_payment_intent_id"`
	// Pledged amount in integer minor units
	Amount int64 `json:"amount" db:"amount"`
	// Cumulative refunded amount. Never exceeds amount.
	RefundedAmount int64 `json:"refunded_amount" db:"refunded_amount"`
	// The currency field uses a three-letter ISO code (USD, EUR, GBP, etc.)
	Currency string `json:"currency" db:"currency"`
	// The state field tracks the pledge lifecycle
	State PledgeState `json:"state" db:"state"`
	// The metadata field contains additional custom key-value pairs (optional)
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	types.BaseModel
}

// RefundableAmount returns how much of the pledge can still be refunded
func (p *Pledge) RefundableAmount() int64 {
	return p.Amount - p.RefundedAmount
}

// IncrementRefunds applies a refund to the pledge's running total.
// Over-allocation surfaces as an invariant violation, never clamped.
func (p *Pledge) IncrementRefunds(refundedAmount int64) error {
	if refundedAmount < 0 {
		return ierr.NewError("refund increment must be non-negative").
			WithReportableDetails(map[string]any{
				"pledge_id":       p.ID,
				"refunded_amount": refundedAmount,
			}).
			Mark(ierr.ErrInvariantViolation)
	}

	newAmount := p.RefundedAmount + refundedAmount
	if newAmount > p.Amount {
		return ierr.NewError("refund accounting exceeds pledge amount").
			WithReportableDetails(map[string]any{
				"pledge_id":           p.ID,
				"amount":              p.Amount,
				"new_refunded_amount": newAmount,
			}).
			Mark(ierr.ErrInvariantViolation)
	}

	p.RefundedAmount = newAmount
	if p.RefundedAmount == p.Amount {
		p.State = PledgeStateRefunded
	}
	return nil
}

// Validate validates the pledge
func (p *Pledge) Validate() error {
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
	if p.ProcessorPaymentIntentID == "" {
		return ierr.NewError("invalid payment intent id").
			WithHint("Payment intent id is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the pledge
func (p *Pledge) TableName() string {
	return "pledges"
}
