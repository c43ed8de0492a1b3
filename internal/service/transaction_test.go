package service

import (
	"testing"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/refund"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type TransactionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TransactionService
}

func TestTransactionService(t *testing.T) {
	suite.Run(t, new(TransactionServiceSuite))
}

func (s *TransactionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewTransactionService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetDB(),
		Sentry:          s.GetSentry(),
		TransactionRepo: s.GetStores().TransactionRepo,
	})
}

func (s *TransactionServiceSuite) TestRecordRefundWritesNegativeSplit() {
	orderID := "order_txn_test"
	rec := &refund.Refund{
		ID:                "refund_txn_test",
		OrderID:           &orderID,
		Amount:            1110,
		TaxAmount:         278,
		Currency:          "eur",
		RefundStatus:      types.RefundStatusSucceeded,
		ProcessorRefundID: "re_txn_test",
	}

	t, err := s.service.RecordRefund(s.GetContext(), rec)
	s.NoError(err)
	s.Equal(types.TransactionTypeRefund, t.TransactionType)
	s.Equal(int64(-1110), t.Amount)
	s.Equal(int64(-278), t.TaxAmount)
	s.Equal(rec.ID, *t.RefundID)

	// One ledger row per refund, replays included
	again, err := s.service.RecordRefund(s.GetContext(), rec)
	s.NoError(err)
	s.Equal(t.ID, again.ID)

	items, err := s.service.ListByOrderID(s.GetContext(), orderID)
	s.NoError(err)
	s.Len(items, 1)
}

func (s *TransactionServiceSuite) TestRecordRefundForPledgeCollapsesTax() {
	pledgeID := "pledge_txn_test"
	rec := &refund.Refund{
		ID:                "refund_txn_pledge",
		PledgeID:          &pledgeID,
		Amount:            1000,
		TaxAmount:         0,
		Currency:          "eur",
		RefundStatus:      types.RefundStatusSucceeded,
		ProcessorRefundID: "re_txn_pledge",
	}

	t, err := s.service.RecordRefund(s.GetContext(), rec)
	s.NoError(err)
	s.Equal(int64(-1000), t.Amount)
	s.Equal(int64(0), t.TaxAmount)
	s.Equal(pledgeID, *t.PledgeID)
}

func (s *TransactionServiceSuite) TestRecordPayout() {
	t, err := s.service.RecordPayout(s.GetContext(), &stripeapi.Payout{
		ID:       "po_txn_test",
		Amount:   25000,
		Currency: stripeapi.Currency("eur"),
	})
	s.NoError(err)
	s.Equal(types.TransactionTypePayout, t.TransactionType)
	s.Equal(int64(-25000), t.Amount)
	s.Equal("po_txn_test", *t.ProcessorID)

	_, err = s.service.RecordPayout(s.GetContext(), nil)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
