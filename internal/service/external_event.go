package service

import (
	"context"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/events"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// ExternalEventService owns ingestion and execution bookkeeping for
// processor webhook events.
type ExternalEventService interface {
	// Ingest claims the event. The first delivery wins and gets a
	// record to process; every later duplicate returns claimed=false
	// and must be acknowledged to the processor without side effects.
	Ingest(ctx context.Context, processorEvent *stripeapi.Event) (*events.ExternalEvent, bool, error)
	// Handle loads the claimed event and runs fn inside a database
	// transaction. Events already marked handled are skipped. Success
	// marks the event handled atomically with fn's writes.
	Handle(ctx context.Context, processorEventID string, fn func(ctx context.Context, event *events.ExternalEvent) error) error
	// MarkFailed records a terminal handler failure
	MarkFailed(ctx context.Context, processorEventID string, handlerErr error) error
	Get(ctx context.Context, processorEventID string) (*events.ExternalEvent, error)
}

type externalEventService struct {
	ServiceParams
}

func NewExternalEventService(params ServiceParams) ExternalEventService {
	return &externalEventService{ServiceParams: params}
}

func (s *externalEventService) Ingest(ctx context.Context, processorEvent *stripeapi.Event) (*events.ExternalEvent, bool, error) {
	if processorEvent == nil || processorEvent.ID == "" {
		return nil, false, ierr.NewError("invalid event payload").
			WithHint("Event payload is missing").
			Mark(ierr.ErrValidation)
	}

	event := &events.ExternalEvent{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXTERNAL_EVENT),
		ProcessorEventID:   processorEvent.ID,
		EventType:          types.ExternalEventType(processorEvent.Type),
		Payload:            processorEvent.Data.Raw,
		EventStatus:        types.ExternalEventStatusPending,
		ProcessorCreatedAt: time.Unix(processorEvent.Created, 0).UTC(),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if err := event.Validate(); err != nil {
		return nil, false, err
	}

	claimed, err := s.EventRepo.Claim(ctx, event)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		s.Logger.Infow("duplicate event delivery, already claimed",
			"processor_event_id", processorEvent.ID,
			"event_type", processorEvent.Type,
		)
		return nil, false, nil
	}

	return event, true, nil
}

func (s *externalEventService) Handle(ctx context.Context, processorEventID string, fn func(ctx context.Context, event *events.ExternalEvent) error) error {
	event, err := s.EventRepo.GetByProcessorEventID(ctx, processorEventID)
	if err != nil {
		return err
	}

	if event.Handled() {
		s.Logger.Infow("event already handled, skipping",
			"processor_event_id", processorEventID,
			"event_type", event.EventType,
		)
		return nil
	}

	span, ctx := s.Sentry.MonitorEventProcessing(ctx, event.EventType.String(), event.ProcessorCreatedAt, map[string]interface{}{
		"processor_event_id": processorEventID,
	})
	if span != nil {
		defer span.Finish()
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx, event); err != nil {
			return err
		}
		return s.EventRepo.MarkHandled(ctx, processorEventID)
	})
}

func (s *externalEventService) MarkFailed(ctx context.Context, processorEventID string, handlerErr error) error {
	return s.EventRepo.MarkFailed(ctx, processorEventID, handlerErr.Error())
}

func (s *externalEventService) Get(ctx context.Context, processorEventID string) (*events.ExternalEvent, error) {
	return s.EventRepo.GetByProcessorEventID(ctx, processorEventID)
}
