package testutil

import (
	"context"
	"sync"

	"github.com/settledhq/settled/internal/domain/pledge"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemoryPledgeStore struct {
	mu      sync.RWMutex
	pledges map[string]*pledge.Pledge
}

func NewInMemoryPledgeStore() *InMemoryPledgeStore {
	return &InMemoryPledgeStore{
		pledges: make(map[string]*pledge.Pledge),
	}
}

func (s *InMemoryPledgeStore) Create(ctx context.Context, p *pledge.Pledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		return ierr.NewError("pledge id cannot be empty").
			WithHint("Pledge ID is required").
			Mark(ierr.ErrValidation)
	}

	stored := *p
	s.pledges[p.ID] = &stored
	return nil
}

func (s *InMemoryPledgeStore) Get(ctx context.Context, id string) (*pledge.Pledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.pledges[id]
	if !exists {
		return nil, ierr.NewError("pledge not found").
			WithHintf("Pledge %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *p
	return &found, nil
}

func (s *InMemoryPledgeStore) GetByProcessorPaymentIntentID(ctx context.Context, paymentIntentID string) (*pledge.Pledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.pledges {
		if p.ProcessorPaymentIntentID == paymentIntentID {
			found := *p
			return &found, nil
		}
	}
	return nil, ierr.NewError("pledge not found").
		WithHintf("Pledge with payment intent %s was not found", paymentIntentID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPledgeStore) Update(ctx context.Context, p *pledge.Pledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pledges[p.ID]; !exists {
		return ierr.NewError("pledge not found").
			WithHintf("Pledge %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}
	stored := *p
	s.pledges[p.ID] = &stored
	return nil
}

// Clear removes all pledges from the store
func (s *InMemoryPledgeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pledges = make(map[string]*pledge.Pledge)
}
