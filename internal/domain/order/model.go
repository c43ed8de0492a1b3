package order

import (
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// Order represents a captured payment for a one-time purchase or a
// subscription cycle. All monetary fields are integer minor units in
// the order's currency.
type Order struct {
	// Unique identifier for this order
	ID string `json:"id" db:"id"`
	// Human-readable order number printed on receipts, e.g. ORD-XY12A8Q
	OrderNumber string `json:"order_number" db:"order_number"`
	// Principal charged, tax excluded. The customer paid amount + tax_amount.
	Amount int64 `json:"amount" db:"amount"`
	// The tax_amount field is the tax charged on top of amount
	TaxAmount int64 `json:"tax_amount" db:"tax_amount"`
	// Cumulative refunded principal. Never exceeds amount.
	RefundedAmount int64 `json:"refunded_amount" db:"refunded_amount"`
	// Cumulative refunded tax. Never exceeds tax_amount.
	RefundedTaxAmount int64 `json:"refunded_tax_amount" db:"refunded_tax_amount"`
	// The currency field uses a three-letter ISO code (USD, EUR, GBP, etc.)
	Currency string `json:"currency" db:"currency"`
	// The order_status tracks the refund lifecycle (paid, partially_refunded, refunded)
	OrderStatus types.OrderStatus `json:"order_status" db:"order_status"`
	// The billing_reason indicates why this order was created
	BillingReason types.OrderBillingReason `json:"billing_reason" db:"billing_reason"`
	// The customer_id links the order to the paying customer
	CustomerID string `json:"customer_id" db:"customer_id"`
	// The subscription_id links subscription orders to their subscription (optional)
	SubscriptionID *string `json:"subscription_id,omitempty" db:"subscription_id"`
	// The processor_invoice_id is the invoice identifier at the payment processor (optional)
	ProcessorInvoiceID *string `json:"processor_invoice_id,omitempty" db:"processor_invoice_id"`
	// The processor_charge_id is the charge identifier at the payment processor (optional)
	ProcessorChargeID *string `json:"processor_charge_id,omitempty" db:"processor_charge_id"`
	// The metadata field contains additional custom key-value pairs (optional)
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	types.BaseModel
}

// Total returns the full amount the customer paid, tax included
func (o *Order) Total() int64 {
	return o.Amount + o.TaxAmount
}

// RefundableAmount returns how much principal can still be refunded
func (o *Order) RefundableAmount() int64 {
	return o.Amount - o.RefundedAmount
}

// RefundableTaxAmount returns how much tax can still be refunded
func (o *Order) RefundableTaxAmount() int64 {
	return o.TaxAmount - o.RefundedTaxAmount
}

// RemainingBalance returns the tax-inclusive amount still refundable.
// This is what the processor's cumulative charge figures are compared
// against during reconciliation.
func (o *Order) RemainingBalance() int64 {
	return o.RefundableAmount() + o.RefundableTaxAmount()
}

// Refunded reports whether the order has been fully refunded
func (o *Order) Refunded() bool {
	return o.OrderStatus == types.OrderStatusRefunded
}

// IncrementRefunds applies a refund allocation to the order's running
// totals and derives the new order status. This is the only mutator for
// refund accounting. Over-allocation is never clamped: a refund that
// would push the totals past the order's amounts means state is already
// corrupted, so it surfaces as an invariant violation.
func (o *Order) IncrementRefunds(refundedAmount, refundedTaxAmount int64) error {
	if refundedAmount < 0 || refundedTaxAmount < 0 {
		return ierr.NewError("refund increments must be non-negative").
			WithReportableDetails(map[string]any{
				"order_id":            o.ID,
				"refunded_amount":     refundedAmount,
				"refunded_tax_amount": refundedTaxAmount,
			}).
			Mark(ierr.ErrInvariantViolation)
	}

	newAmount := o.RefundedAmount + refundedAmount
	newTaxAmount := o.RefundedTaxAmount + refundedTaxAmount

	if newAmount > o.Amount || newTaxAmount > o.TaxAmount {
		return ierr.NewError("refund accounting exceeds order totals").
			WithReportableDetails(map[string]any{
				"order_id":                o.ID,
				"amount":                  o.Amount,
				"tax_amount":              o.TaxAmount,
				"new_refunded_amount":     newAmount,
				"new_refunded_tax_amount": newTaxAmount,
			}).
			Mark(ierr.ErrInvariantViolation)
	}

	o.RefundedAmount = newAmount
	o.RefundedTaxAmount = newTaxAmount

	if o.RefundedAmount == o.Amount {
		o.OrderStatus = types.OrderStatusRefunded
	} else if o.RefundedAmount > 0 {
		o.OrderStatus = types.OrderStatusPartiallyRefunded
	}

	return nil
}

// Validate validates the order
func (o *Order) Validate() error {
	if o.Amount <= 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if o.TaxAmount < 0 {
		return ierr.NewError("invalid tax amount").
			WithHint("Tax amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if o.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is invalid").
			Mark(ierr.ErrValidation)
	}
	if o.CustomerID == "" {
		return ierr.NewError("invalid customer id").
			WithHint("Customer id is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := o.OrderStatus.Validate(); err != nil {
		return ierr.NewError("invalid order status").
			WithHint("Order status is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := o.BillingReason.Validate(); err != nil {
		return ierr.NewError("invalid billing reason").
			WithHint("Billing reason is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the order
func (o *Order) TableName() string {
	return "orders"
}
