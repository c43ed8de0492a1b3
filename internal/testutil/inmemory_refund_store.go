package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/settledhq/settled/internal/domain/refund"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemoryRefundStore struct {
	mu      sync.RWMutex
	refunds map[string]*refund.Refund
}

func NewInMemoryRefundStore() *InMemoryRefundStore {
	return &InMemoryRefundStore{
		refunds: make(map[string]*refund.Refund),
	}
}

func (s *InMemoryRefundStore) Create(ctx context.Context, r *refund.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return ierr.NewError("refund id cannot be empty").
			WithHint("Refund ID is required").
			Mark(ierr.ErrValidation)
	}
	for _, existing := range s.refunds {
		if existing.ProcessorRefundID == r.ProcessorRefundID {
			return ierr.NewError("refund already exists").
				WithHintf("Refund with processor id %s already exists", r.ProcessorRefundID).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	stored := *r
	s.refunds[r.ID] = &stored
	return nil
}

func (s *InMemoryRefundStore) Get(ctx context.Context, id string) (*refund.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.refunds[id]
	if !exists {
		return nil, ierr.NewError("refund not found").
			WithHintf("Refund %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *r
	return &found, nil
}

func (s *InMemoryRefundStore) GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*refund.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.refunds {
		if r.ProcessorRefundID == processorRefundID {
			found := *r
			return &found, nil
		}
	}
	return nil, ierr.NewError("refund not found").
		WithHintf("Refund with processor id %s was not found", processorRefundID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryRefundStore) Update(ctx context.Context, r *refund.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.refunds[r.ID]; !exists {
		return ierr.NewError("refund not found").
			WithHintf("Refund %s was not found", r.ID).
			Mark(ierr.ErrNotFound)
	}
	stored := *r
	s.refunds[r.ID] = &stored
	return nil
}

func (s *InMemoryRefundStore) ListByOrderID(ctx context.Context, orderID string) ([]*refund.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refunds := make([]*refund.Refund, 0)
	for _, r := range s.refunds {
		if r.OrderID != nil && *r.OrderID == orderID {
			found := *r
			refunds = append(refunds, &found)
		}
	}
	sort.Slice(refunds, func(i, j int) bool {
		return refunds[i].CreatedAt.Before(refunds[j].CreatedAt)
	})
	return refunds, nil
}

// Clear removes all refunds from the store
func (s *InMemoryRefundStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = make(map[string]*refund.Refund)
}
