package transaction

import (
	"context"
)

// Repository defines the interface for ledger persistence.
// Rows are append-only; there is no update or delete.
type Repository interface {
	Create(ctx context.Context, transaction *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByRefundID(ctx context.Context, refundID string) (*Transaction, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*Transaction, error)
}
