package service

import (
	"testing"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/order"
	"github.com/settledhq/settled/internal/domain/payment"
	"github.com/settledhq/settled/internal/domain/pledge"
	"github.com/settledhq/settled/internal/dto"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type RefundServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  RefundService
	testData struct {
		order         *order.Order
		payment       *payment.Payment
		pledge        *pledge.Pledge
		pledgePayment *payment.Payment
	}
}

func TestRefundService(t *testing.T) {
	suite.Run(t, new(RefundServiceSuite))
}

func (s *RefundServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewRefundService(s.params())
	s.setupTestData()
}

func (s *RefundServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Sentry:           s.GetSentry(),
		OrderRepo:        s.GetStores().OrderRepo,
		RefundRepo:       s.GetStores().RefundRepo,
		PaymentRepo:      s.GetStores().PaymentRepo,
		PledgeRepo:       s.GetStores().PledgeRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		TransactionRepo:  s.GetStores().TransactionRepo,
		EventRepo:        s.GetStores().EventRepo,
		Gateway:          s.GetGateway(),
	}
}

func (s *RefundServiceSuite) setupTestData() {
	invoiceID := "in_test_refund"
	chargeID := "ch_test_refund"
	s.testData.order = &order.Order{
		ID:                 "order_test_refund",
		OrderNumber:        "ORD-REFUND1",
		Amount:             9990,
		TaxAmount:          2498,
		Currency:           "eur",
		OrderStatus:        types.OrderStatusPaid,
		BillingReason:      types.OrderBillingReasonSubscriptionCycle,
		CustomerID:         "cus_test_refund",
		ProcessorInvoiceID: &invoiceID,
		ProcessorChargeID:  &chargeID,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), s.testData.order))

	s.testData.payment = &payment.Payment{
		ID:                "pay_test_refund",
		ProcessorChargeID: chargeID,
		OrderID:           &s.testData.order.ID,
		Amount:            9990,
		TaxAmount:         2498,
		Currency:          "eur",
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), s.testData.payment))

	s.testData.pledge = &pledge.Pledge{
		ID:                       "pledge_test_refund",
		ProcessorPaymentIntentID: "pi_test_refund",
		Amount:                   4200,
		Currency:                 "eur",
		State:                    pledge.PledgeStatePending,
		BaseModel:                types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PledgeRepo.Create(s.GetContext(), s.testData.pledge))

	intentID := s.testData.pledge.ProcessorPaymentIntentID
	s.testData.pledgePayment = &payment.Payment{
		ID:                       "pay_test_pledge",
		ProcessorChargeID:        "ch_test_pledge",
		ProcessorPaymentIntentID: &intentID,
		PledgeID:                 &s.testData.pledge.ID,
		Amount:                   4200,
		Currency:                 "eur",
		BaseModel:                types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), s.testData.pledgePayment))
}

func (s *RefundServiceSuite) getOrder() *order.Order {
	o, err := s.GetStores().OrderRepo.Get(s.GetContext(), s.testData.order.ID)
	s.NoError(err)
	return o
}

func (s *RefundServiceSuite) createRefund(amount int64) (*dto.CreateRefundRequest, error) {
	req := &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  amount,
		Reason:  types.RefundReasonRequestedByCustomer,
	}
	_, err := s.service.Create(s.GetContext(), req)
	return req, err
}

func (s *RefundServiceSuite) TestCreateAllocatesProportionalTax() {
	rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  1110,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.NoError(err)
	s.Equal(int64(1110), rec.Amount)
	s.Equal(int64(278), rec.TaxAmount)
	s.Equal(types.RefundStatusSucceeded, rec.RefundStatus)
	s.NotNil(rec.SucceededAt)

	// The processor was asked for the tax-inclusive total
	calls := s.GetGateway().CreateCalls()
	s.Len(calls, 1)
	s.Equal(int64(1388), calls[0].Amount)
	s.Equal("ch_test_refund", calls[0].ChargeID)

	// Balance credited and ledger row written
	o := s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)
	s.Equal(int64(278), o.RefundedTaxAmount)
	s.Equal(types.OrderStatusPartiallyRefunded, o.OrderStatus)

	txn, err := s.GetStores().TransactionRepo.GetByRefundID(s.GetContext(), rec.ID)
	s.NoError(err)
	s.Equal(int64(-1110), txn.Amount)
	s.Equal(int64(-278), txn.TaxAmount)
	s.Equal(types.TransactionTypeRefund, txn.TransactionType)
}

func (s *RefundServiceSuite) TestCreateSequenceDrainsOrderExactly() {
	expectedTax := map[int64]int64{1110: 278, 993: 248, 5887: 1472, 2000: 500}

	for _, amount := range []int64{1110, 993, 5887} {
		rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
			OrderID: s.testData.order.ID,
			Amount:  amount,
			Reason:  types.RefundReasonRequestedByCustomer,
		})
		s.NoError(err)
		s.Equal(expectedTax[amount], rec.TaxAmount)
	}

	// 2001 exceeds the remaining 2000 of principal
	_, err := s.createRefund(2001)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// The rejection left the order untouched
	o := s.getOrder()
	s.Equal(int64(7990), o.RefundedAmount)
	s.Equal(int64(1998), o.RefundedTaxAmount)
	s.Equal(types.OrderStatusPartiallyRefunded, o.OrderStatus)

	// The final refund takes the exact remaining tax, not the
	// proportional figure
	rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  2000,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.NoError(err)
	s.Equal(int64(500), rec.TaxAmount)

	o = s.getOrder()
	s.Equal(types.OrderStatusRefunded, o.OrderStatus)
	s.Equal(int64(0), o.RemainingBalance())

	// A refunded order refuses further refunds
	_, err = s.createRefund(1)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *RefundServiceSuite) TestCreateWithoutPayment() {
	o := &order.Order{
		ID:            "order_no_payment",
		OrderNumber:   "ORD-NOPAY1",
		Amount:        1000,
		TaxAmount:     0,
		Currency:      "eur",
		OrderStatus:   types.OrderStatusPaid,
		BillingReason: types.OrderBillingReasonPurchase,
		CustomerID:    "cus_test_refund",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))

	_, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: o.ID,
		Amount:  500,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RefundServiceSuite) TestCreateGatewayFailureLeavesNoTrace() {
	s.GetGateway().CreateRefundErr = ierr.NewError("processor unavailable").
		WithHint("The processor could not be reached").
		Mark(ierr.ErrHTTPClient)

	_, err := s.createRefund(1110)
	s.Error(err)
	s.True(ierr.IsHTTPClient(err))

	refunds, err := s.service.ListByOrderID(s.GetContext(), s.testData.order.ID)
	s.NoError(err)
	s.Empty(refunds)

	o := s.getOrder()
	s.Equal(int64(0), o.RefundedAmount)
	s.Equal(types.OrderStatusPaid, o.OrderStatus)
}

func (s *RefundServiceSuite) TestCreatePendingDefersCredit() {
	s.GetGateway().RefundStatus = "pending"

	rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  1110,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.NoError(err)
	s.Equal(types.RefundStatusPending, rec.RefundStatus)
	s.Nil(rec.SucceededAt)

	// No credit and no ledger row until the processor settles
	o := s.getOrder()
	s.Equal(int64(0), o.RefundedAmount)
	_, err = s.GetStores().TransactionRepo.GetByRefundID(s.GetContext(), rec.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *RefundServiceSuite) TestUpsertCreditsExactlyOnce() {
	s.GetGateway().RefundStatus = "pending"
	rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  1110,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.NoError(err)

	update := &stripeapi.Refund{
		ID:            rec.ProcessorRefundID,
		Amount:        1388,
		Currency:      stripeapi.Currency("eur"),
		Status:        stripeapi.RefundStatusSucceeded,
		Charge:        &stripeapi.Charge{ID: "ch_test_refund"},
		ReceiptNumber: "1234-5678",
	}

	s.NoError(s.service.UpsertFromProcessor(s.GetContext(), update))

	o := s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)
	s.Equal(int64(278), o.RefundedTaxAmount)

	stored, err := s.service.Get(s.GetContext(), rec.ID)
	s.NoError(err)
	s.Equal(types.RefundStatusSucceeded, stored.RefundStatus)
	s.NotNil(stored.SucceededAt)
	s.NotNil(stored.ReceiptNumber)

	// Replaying the settled refund must not credit again
	s.NoError(s.service.UpsertFromProcessor(s.GetContext(), update))

	o = s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)
	s.Equal(int64(278), o.RefundedTaxAmount)

	txns, err := s.GetStores().TransactionRepo.ListByOrderID(s.GetContext(), s.testData.order.ID)
	s.NoError(err)
	s.Len(txns, 1)
}

func (s *RefundServiceSuite) TestUpsertFailureRecordsReasonWithoutCredit() {
	s.GetGateway().RefundStatus = "pending"
	rec, err := s.service.Create(s.GetContext(), &dto.CreateRefundRequest{
		OrderID: s.testData.order.ID,
		Amount:  1110,
		Reason:  types.RefundReasonRequestedByCustomer,
	})
	s.NoError(err)

	s.NoError(s.service.UpsertFromProcessor(s.GetContext(), &stripeapi.Refund{
		ID:            rec.ProcessorRefundID,
		Currency:      stripeapi.Currency("eur"),
		Status:        stripeapi.RefundStatusFailed,
		FailureReason: stripeapi.RefundFailureReason("expired_or_canceled_card"),
		Charge:        &stripeapi.Charge{ID: "ch_test_refund"},
	}))

	stored, err := s.service.Get(s.GetContext(), rec.ID)
	s.NoError(err)
	s.Equal(types.RefundStatusFailed, stored.RefundStatus)
	s.NotNil(stored.FailureReason)

	o := s.getOrder()
	s.Equal(int64(0), o.RefundedAmount)
}

func (s *RefundServiceSuite) TestUpsertCreatesDashboardRefund() {
	// A refund issued from the processor dashboard arrives with a
	// tax-inclusive amount and no local record
	s.NoError(s.service.UpsertFromProcessor(s.GetContext(), &stripeapi.Refund{
		ID:       "re_dashboard_1",
		Amount:   1388,
		Currency: stripeapi.Currency("eur"),
		Status:   stripeapi.RefundStatusSucceeded,
		Charge:   &stripeapi.Charge{ID: "ch_test_refund"},
	}))

	refunds, err := s.service.ListByOrderID(s.GetContext(), s.testData.order.ID)
	s.NoError(err)
	s.Len(refunds, 1)
	s.Equal(int64(1110), refunds[0].Amount)
	s.Equal(int64(278), refunds[0].TaxAmount)

	o := s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)
	s.Equal(int64(278), o.RefundedTaxAmount)
}

func (s *RefundServiceSuite) TestUpsertUnknownChargeIsRetryable() {
	err := s.service.UpsertFromProcessor(s.GetContext(), &stripeapi.Refund{
		ID:       "re_unknown_charge",
		Amount:   500,
		Currency: stripeapi.Currency("eur"),
		Status:   stripeapi.RefundStatusSucceeded,
		Charge:   &stripeapi.Charge{ID: "ch_never_seen"},
	})
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *RefundServiceSuite) TestUpsertPledgeRefundCarriesNoTax() {
	s.NoError(s.service.UpsertFromProcessor(s.GetContext(), &stripeapi.Refund{
		ID:       "re_pledge_1",
		Amount:   1000,
		Currency: stripeapi.Currency("eur"),
		Status:   stripeapi.RefundStatusSucceeded,
		Charge:   &stripeapi.Charge{ID: "ch_test_pledge"},
	}))

	p, err := s.GetStores().PledgeRepo.Get(s.GetContext(), s.testData.pledge.ID)
	s.NoError(err)
	s.Equal(int64(1000), p.RefundedAmount)
	s.Equal(pledge.PledgeStatePending, p.State)
}

func (s *RefundServiceSuite) TestHandleChargeRefundedReconcilesDelta() {
	charge := &stripeapi.Charge{
		ID:             "ch_test_refund",
		AmountRefunded: 1388,
	}
	s.NoError(s.service.HandleChargeRefunded(s.GetContext(), charge))

	o := s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)
	s.Equal(int64(278), o.RefundedTaxAmount)

	// The same cumulative figure again is a no-op
	s.NoError(s.service.HandleChargeRefunded(s.GetContext(), charge))
	o = s.getOrder()
	s.Equal(int64(1110), o.RefundedAmount)

	// The full total takes the exact-remaining shortcut
	s.NoError(s.service.HandleChargeRefunded(s.GetContext(), &stripeapi.Charge{
		ID:             "ch_test_refund",
		AmountRefunded: 12488,
	}))
	o = s.getOrder()
	s.Equal(types.OrderStatusRefunded, o.OrderStatus)
	s.Equal(int64(0), o.RemainingBalance())
}

func (s *RefundServiceSuite) TestHandleChargeRefundedUnknownChargeIsRetryable() {
	err := s.service.HandleChargeRefunded(s.GetContext(), &stripeapi.Charge{
		ID:             "ch_never_seen",
		AmountRefunded: 100,
	})
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *RefundServiceSuite) TestHandleChargeRefundedPledge() {
	s.NoError(s.service.HandleChargeRefunded(s.GetContext(), &stripeapi.Charge{
		ID:             "ch_test_pledge",
		AmountRefunded: 4200,
	}))

	p, err := s.GetStores().PledgeRepo.Get(s.GetContext(), s.testData.pledge.ID)
	s.NoError(err)
	s.Equal(int64(4200), p.RefundedAmount)
	s.Equal(pledge.PledgeStateRefunded, p.State)
}
