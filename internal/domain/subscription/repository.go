package subscription

import (
	"context"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByProcessorSubscriptionID(ctx context.Context, processorSubscriptionID string) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
}
