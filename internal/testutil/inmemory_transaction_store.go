package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/settledhq/settled/internal/domain/transaction"
	ierr "github.com/settledhq/settled/internal/errors"
)

type InMemoryTransactionStore struct {
	mu           sync.RWMutex
	transactions map[string]*transaction.Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{
		transactions: make(map[string]*transaction.Transaction),
	}
}

func (s *InMemoryTransactionStore) Create(ctx context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		return ierr.NewError("transaction id cannot be empty").
			WithHint("Transaction ID is required").
			Mark(ierr.ErrValidation)
	}
	if t.RefundID != nil {
		for _, existing := range s.transactions {
			if existing.RefundID != nil && *existing.RefundID == *t.RefundID {
				return ierr.NewError("transaction already exists").
					WithHintf("A ledger row for refund %s already exists", *t.RefundID).
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	stored := *t
	s.transactions[t.ID] = &stored
	return nil
}

func (s *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.transactions[id]
	if !exists {
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	found := *t
	return &found, nil
}

func (s *InMemoryTransactionStore) GetByRefundID(ctx context.Context, refundID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.RefundID != nil && *t.RefundID == refundID {
			found := *t
			return &found, nil
		}
	}
	return nil, ierr.NewError("transaction not found").
		WithHintf("Transaction for refund %s was not found", refundID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTransactionStore) ListByOrderID(ctx context.Context, orderID string) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]*transaction.Transaction, 0)
	for _, t := range s.transactions {
		if t.OrderID != nil && *t.OrderID == orderID {
			found := *t
			transactions = append(transactions, &found)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})
	return transactions, nil
}

// Clear removes all transactions from the store
func (s *InMemoryTransactionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]*transaction.Transaction)
}
