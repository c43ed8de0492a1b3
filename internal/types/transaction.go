package types

import (
	"fmt"

	"github.com/samber/lo"
)

// TransactionType is the kind of money movement recorded in the ledger
type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeDispute TransactionType = "dispute"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypePayment,
		TransactionTypeRefund,
		TransactionTypePayout,
		TransactionTypeDispute,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid transaction type: %s", t)
	}
	return nil
}
