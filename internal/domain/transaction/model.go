package transaction

import (
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// Transaction is an append-only ledger row. Payments are recorded as
// positive amounts, refunds and payouts as negative ones, so the sum
// over an account is its balance.
type Transaction struct {
	// Unique identifier for this transaction
	ID string `json:"id" db:"id"`
	// The transaction_type tells what kind of money movement this row records
	TransactionType types.TransactionType `json:"transaction_type" db:"transaction_type"`
	// Signed amount in integer minor units
	Amount int64 `json:"amount" db:"amount"`
	// Tax portion of amount, signed the same way
	TaxAmount int64 `json:"tax_amount" db:"tax_amount"`
	// The currency field uses a three-letter ISO code (USD, EUR, GBP, etc.)
	Currency string `json:"currency" db:"currency"`
	// The order_id links the row to an order (optional)
	OrderID *string `json:"order_id,omitempty" db:"order_id"`
	// The pledge_id links the row to a pledge (optional)
	PledgeID *string `json:"pledge_id,omitempty" db:"pledge_id"`
	// The payment_id links the row to the captured payment (optional)
	PaymentID *string `json:"payment_id,omitempty" db:"payment_id"`
	// The refund_id links the row to the refund it records (optional)
	RefundID *string `json:"refund_id,omitempty" db:"refund_id"`
	// The processor_id is the processor-side object backing this row (optional)
	ProcessorID *string `json:"processor_id,omitempty" db:"processor_id"`
	// The processor_balance_txn_id backs the row at the processor ledger (optional)
	ProcessorBalanceTxnID *string `json:"processor_balance_txn_id,omitempty" db:"processor_balance_txn_id"`

	types.BaseModel
}

// Validate validates the transaction
func (t *Transaction) Validate() error {
	if err := t.TransactionType.Validate(); err != nil {
		return ierr.NewError("invalid transaction type").
			WithHint("Transaction type is invalid").
			Mark(ierr.ErrValidation)
	}
	if t.Amount == 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be non-zero").
			Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the transaction
func (t *Transaction) TableName() string {
	return "transactions"
}
