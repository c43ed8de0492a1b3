package testutil

import (
	"context"
	"sync"

	"github.com/settledhq/settled/internal/domain/subscription"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subscriptions: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		return ierr.NewError("subscription id cannot be empty").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	stored := *sub
	s.subscriptions[sub.ID] = &stored
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.subscriptions[id]
	if !exists {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *sub
	return &found, nil
}

func (s *InMemorySubscriptionStore) GetByProcessorSubscriptionID(ctx context.Context, processorSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.ProcessorSubscriptionID == processorSubscriptionID {
			found := *sub
			return &found, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHintf("Subscription with processor id %s was not found", processorSubscriptionID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; !exists {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s was not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	stored := *sub
	s.subscriptions[sub.ID] = &stored
	return nil
}

// Clear removes all subscriptions from the store
func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]*subscription.Subscription)
}
