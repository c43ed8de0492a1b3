package service

import (
	"context"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/refund"
	"github.com/settledhq/settled/internal/domain/transaction"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// TransactionService writes the append-only money movement ledger
type TransactionService interface {
	// RecordRefund writes the ledger row for a settled refund.
	// Exactly one row exists per refund; replays are no-ops.
	RecordRefund(ctx context.Context, rec *refund.Refund) (*transaction.Transaction, error)
	// RecordPayout writes the ledger row for a processor payout
	RecordPayout(ctx context.Context, payout *stripeapi.Payout) (*transaction.Transaction, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*transaction.Transaction, error)
}

type transactionService struct {
	ServiceParams
}

func NewTransactionService(params ServiceParams) TransactionService {
	return &transactionService{ServiceParams: params}
}

func (s *transactionService) RecordRefund(ctx context.Context, rec *refund.Refund) (*transaction.Transaction, error) {
	existing, err := s.TransactionRepo.GetByRefundID(ctx, rec.ID)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	t := &transaction.Transaction{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		TransactionType:       types.TransactionTypeRefund,
		Amount:                -rec.Amount,
		TaxAmount:             -rec.TaxAmount,
		Currency:              rec.Currency,
		OrderID:               rec.OrderID,
		PledgeID:              rec.PledgeID,
		PaymentID:             rec.PaymentID,
		RefundID:              &rec.ID,
		ProcessorID:           &rec.ProcessorRefundID,
		ProcessorBalanceTxnID: rec.ProcessorBalanceTxnID,
		BaseModel:             types.GetDefaultBaseModel(ctx),
	}
	if rec.PledgeID != nil {
		t.Amount = -rec.TotalAmount()
		t.TaxAmount = 0
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded refund transaction",
		"transaction_id", t.ID,
		"refund_id", rec.ID,
		"amount", t.Amount,
	)

	return t, nil
}

func (s *transactionService) RecordPayout(ctx context.Context, payout *stripeapi.Payout) (*transaction.Transaction, error) {
	if payout == nil || payout.ID == "" {
		return nil, ierr.NewError("invalid payout payload").
			WithHint("Payout payload is missing").
			Mark(ierr.ErrValidation)
	}

	t := &transaction.Transaction{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		TransactionType: types.TransactionTypePayout,
		Amount:          -payout.Amount,
		Currency:        string(payout.Currency),
		ProcessorID:     &payout.ID,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded payout transaction",
		"transaction_id", t.ID,
		"processor_payout_id", payout.ID,
		"amount", t.Amount,
	)

	return t, nil
}

func (s *transactionService) ListByOrderID(ctx context.Context, orderID string) ([]*transaction.Transaction, error) {
	return s.TransactionRepo.ListByOrderID(ctx, orderID)
}
