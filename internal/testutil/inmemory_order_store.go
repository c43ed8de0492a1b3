package testutil

import (
	"context"
	"sync"

	"github.com/settledhq/settled/internal/domain/order"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders: make(map[string]*order.Order),
	}
}

func (s *InMemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		return ierr.NewError("order id cannot be empty").
			WithHint("Order ID is required").
			Mark(ierr.ErrValidation)
	}

	stored := *o
	s.orders[o.ID] = &stored
	return nil
}

func (s *InMemoryOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *InMemoryOrderStore) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	// No row locks in memory; callers serialize through the suite
	return s.Get(ctx, id)
}

func (s *InMemoryOrderStore) GetByProcessorInvoiceID(ctx context.Context, invoiceID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ProcessorInvoiceID != nil && *o.ProcessorInvoiceID == invoiceID {
			found := *o
			return &found, nil
		}
	}
	return nil, ierr.NewError("order not found").
		WithHintf("Order with invoice %s was not found", invoiceID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryOrderStore) GetByProcessorChargeID(ctx context.Context, chargeID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ProcessorChargeID != nil && *o.ProcessorChargeID == chargeID {
			found := *o
			return &found, nil
		}
	}
	return nil, ierr.NewError("order not found").
		WithHintf("Order with charge %s was not found", chargeID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryOrderStore) Update(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; !exists {
		return ierr.NewError("order not found").
			WithHintf("Order %s was not found", o.ID).
			Mark(ierr.ErrNotFound)
	}
	stored := *o
	s.orders[o.ID] = &stored
	return nil
}

func (s *InMemoryOrderStore) UpdateRefunds(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.orders[o.ID]
	if !exists {
		return ierr.NewError("order not found").
			WithHintf("Order %s was not found", o.ID).
			Mark(ierr.ErrNotFound)
	}

	// Same defensive re-check the SQL layer performs
	if o.RefundedAmount > existing.Amount || o.RefundedTaxAmount > existing.TaxAmount {
		return ierr.NewError("refund accounting exceeds order totals").
			WithHintf("Order %s cannot absorb the refund increment", o.ID).
			Mark(ierr.ErrInvariantViolation)
	}

	existing.RefundedAmount = o.RefundedAmount
	existing.RefundedTaxAmount = o.RefundedTaxAmount
	existing.OrderStatus = o.OrderStatus
	existing.UpdatedAt = o.UpdatedAt
	existing.UpdatedBy = o.UpdatedBy
	return nil
}

func (s *InMemoryOrderStore) ListByCustomerID(ctx context.Context, customerID string) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*order.Order, 0)
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			found := *o
			orders = append(orders, &found)
		}
	}
	return orders, nil
}

func (s *InMemoryOrderStore) get(id string) (*order.Order, error) {
	o, exists := s.orders[id]
	if !exists {
		return nil, ierr.NewError("order not found").
			WithHintf("Order %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *o
	return &found, nil
}

// Clear removes all orders from the store
func (s *InMemoryOrderStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]*order.Order)
}
