package events

import (
	"context"
)

// Repository defines the interface for external event persistence
type Repository interface {
	// Claim inserts the event if its processor event id has not been
	// seen before. Returns true when this call took ownership, false
	// when another delivery already did. This insert-if-absent check is
	// the only idempotency mechanism in the pipeline.
	Claim(ctx context.Context, event *ExternalEvent) (bool, error)
	Get(ctx context.Context, id string) (*ExternalEvent, error)
	GetByProcessorEventID(ctx context.Context, processorEventID string) (*ExternalEvent, error)
	MarkHandled(ctx context.Context, processorEventID string) error
	MarkFailed(ctx context.Context, processorEventID string, failure string) error
}
