package pledge

import (
	"context"
)

// Repository defines the interface for pledge persistence
type Repository interface {
	Create(ctx context.Context, pledge *Pledge) error
	Get(ctx context.Context, id string) (*Pledge, error)
	GetByProcessorPaymentIntentID(ctx context.Context, paymentIntentID string) (*Pledge, error)
	Update(ctx context.Context, pledge *Pledge) error
}
