package refund

import (
	"context"
)

// Repository defines the interface for refund persistence
type Repository interface {
	Create(ctx context.Context, refund *Refund) error
	Get(ctx context.Context, id string) (*Refund, error)
	// GetByProcessorRefundID is the idempotent-upsert lookup: every
	// processor webhook carries the processor's refund id.
	GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*Refund, error)
	Update(ctx context.Context, refund *Refund) error
	ListByOrderID(ctx context.Context, orderID string) ([]*Refund, error)
}
