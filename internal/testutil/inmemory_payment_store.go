package testutil

import (
	"context"
	"sync"

	"github.com/settledhq/settled/internal/domain/payment"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[string]*payment.Payment
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		payments: make(map[string]*payment.Payment),
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		return ierr.NewError("payment id cannot be empty").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}

	stored := *p
	s.payments[p.ID] = &stored
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.payments[id]
	if !exists {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *p
	return &found, nil
}

func (s *InMemoryPaymentStore) GetByProcessorChargeID(ctx context.Context, chargeID string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.ProcessorChargeID == chargeID {
			found := *p
			return &found, nil
		}
	}
	return nil, ierr.NewError("payment not found").
		WithHintf("Payment with charge %s was not found", chargeID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPaymentStore) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.OrderID != nil && *p.OrderID == orderID {
			found := *p
			return &found, nil
		}
	}
	return nil, ierr.NewError("payment not found").
		WithHintf("Payment for order %s was not found", orderID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; !exists {
		return ierr.NewError("payment not found").
			WithHintf("Payment %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}
	stored := *p
	s.payments[p.ID] = &stored
	return nil
}

// Clear removes all payments from the store
func (s *InMemoryPaymentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = make(map[string]*payment.Payment)
}
