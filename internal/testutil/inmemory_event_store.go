package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/settledhq/settled/internal/domain/events"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

type InMemoryExternalEventStore struct {
	mu     sync.Mutex
	events map[string]*events.ExternalEvent
	// keyed by processor event id, mirroring the unique index
	byProcessorID map[string]string
}

func NewInMemoryExternalEventStore() *InMemoryExternalEventStore {
	return &InMemoryExternalEventStore{
		events:        make(map[string]*events.ExternalEvent),
		byProcessorID: make(map[string]string),
	}
}

func (s *InMemoryExternalEventStore) Claim(ctx context.Context, event *events.ExternalEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" || event.ProcessorEventID == "" {
		return false, ierr.NewError("event id cannot be empty").
			WithHint("Event ID is required").
			Mark(ierr.ErrValidation)
	}

	if _, exists := s.byProcessorID[event.ProcessorEventID]; exists {
		return false, nil
	}

	stored := *event
	s.events[event.ID] = &stored
	s.byProcessorID[event.ProcessorEventID] = event.ID
	return true, nil
}

func (s *InMemoryExternalEventStore) Get(ctx context.Context, id string) (*events.ExternalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, exists := s.events[id]
	if !exists {
		return nil, ierr.NewError("event not found").
			WithHintf("Event %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *event
	return &found, nil
}

func (s *InMemoryExternalEventStore) GetByProcessorEventID(ctx context.Context, processorEventID string) (*events.ExternalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.getByProcessorID(processorEventID)
	if err != nil {
		return nil, err
	}
	found := *event
	return &found, nil
}

func (s *InMemoryExternalEventStore) MarkHandled(ctx context.Context, processorEventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.getByProcessorID(processorEventID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	event.EventStatus = types.ExternalEventStatusHandled
	event.HandledAt = &now
	event.FailureError = nil
	return nil
}

func (s *InMemoryExternalEventStore) MarkFailed(ctx context.Context, processorEventID string, failure string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.getByProcessorID(processorEventID)
	if err != nil {
		return err
	}
	event.EventStatus = types.ExternalEventStatusFailed
	event.FailureError = &failure
	return nil
}

func (s *InMemoryExternalEventStore) getByProcessorID(processorEventID string) (*events.ExternalEvent, error) {
	id, exists := s.byProcessorID[processorEventID]
	if !exists {
		return nil, ierr.NewError("event not found").
			WithHintf("Event with processor id %s was not found", processorEventID).
			Mark(ierr.ErrNotFound)
	}
	return s.events[id], nil
}

// Clear removes all events from the store
func (s *InMemoryExternalEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*events.ExternalEvent)
	s.byProcessorID = make(map[string]string)
}
