package order

import (
	"context"
)

// Repository defines the interface for order persistence
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUpdate locks the order row for the duration of the current
	// transaction so concurrent refunds serialize on it.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	GetByProcessorInvoiceID(ctx context.Context, invoiceID string) (*Order, error)
	GetByProcessorChargeID(ctx context.Context, chargeID string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	// UpdateRefunds persists only the refund accounting columns and the
	// derived order status.
	UpdateRefunds(ctx context.Context, order *Order) error
	ListByCustomerID(ctx context.Context, customerID string) ([]*Order, error)
}
