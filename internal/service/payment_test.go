package service

import (
	"testing"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/order"
	"github.com/settledhq/settled/internal/domain/pledge"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PaymentService
	order   *order.Order
	pledge  *pledge.Pledge
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPaymentService(ServiceParams{
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
	})

	invoiceID := "in_test_payment"
	s.order = &order.Order{
		ID:                 "order_test_payment",
		OrderNumber:        "ORD-PAY1",
		Amount:             9990,
		TaxAmount:          2498,
		Currency:           "eur",
		OrderStatus:        types.OrderStatusPaid,
		BillingReason:      types.OrderBillingReasonSubscriptionCycle,
		CustomerID:         "cus_test_payment",
		ProcessorInvoiceID: &invoiceID,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), s.order))

	s.pledge = &pledge.Pledge{
		ID:                       "pledge_test_payment",
		ProcessorPaymentIntentID: "pi_test_payment",
		Amount:                   4200,
		Currency:                 "eur",
		State:                    pledge.PledgeStateCreated,
		BaseModel:                types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PledgeRepo.Create(s.GetContext(), s.pledge))
}

func (s *PaymentServiceSuite) TestCreateFromChargeForInvoice() {
	charge := &stripeapi.Charge{
		ID:       "ch_pay_1",
		Amount:   12488,
		Currency: stripeapi.Currency("eur"),
		Metadata: map[string]string{"invoice_id": "in_test_payment"},
	}

	p, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.NoError(err)
	s.Equal(s.order.ID, *p.OrderID)
	s.Nil(p.PledgeID)

	// Amounts come from the order split, not the gross charge
	s.Equal(int64(9990), p.Amount)
	s.Equal(int64(2498), p.TaxAmount)

	// The charge is linked back onto the order for refund resolution
	stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), s.order.ID)
	s.NoError(err)
	s.Equal("ch_pay_1", *stored.ProcessorChargeID)

	// Redelivery returns the existing payment
	again, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.NoError(err)
	s.Equal(p.ID, again.ID)
}

func (s *PaymentServiceSuite) TestCreateFromChargeUnknownInvoiceIsRetryable() {
	charge := &stripeapi.Charge{
		ID:       "ch_pay_2",
		Amount:   5000,
		Currency: stripeapi.Currency("eur"),
		Metadata: map[string]string{"invoice_id": "in_never_seen"},
	}

	_, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *PaymentServiceSuite) TestCreateFromChargeForPledge() {
	charge := &stripeapi.Charge{
		ID:            "ch_pay_3",
		Amount:        4200,
		Currency:      stripeapi.Currency("eur"),
		PaymentIntent: &stripeapi.PaymentIntent{ID: "pi_test_payment"},
	}

	p, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.NoError(err)
	s.Equal(s.pledge.ID, *p.PledgeID)
	s.Nil(p.OrderID)
	s.Equal(int64(4200), p.Amount)
	s.Equal(int64(0), p.TaxAmount)
}

func (s *PaymentServiceSuite) TestCreateFromChargeWithoutOwner() {
	charge := &stripeapi.Charge{
		ID:       "ch_pay_4",
		Amount:   100,
		Currency: stripeapi.Currency("eur"),
	}

	_, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestCreateFromChargeUnknownPledgeIsRetryable() {
	charge := &stripeapi.Charge{
		ID:            "ch_pay_5",
		Amount:        100,
		Currency:      stripeapi.Currency("eur"),
		PaymentIntent: &stripeapi.PaymentIntent{ID: "pi_never_seen"},
	}

	_, err := s.service.CreateFromCharge(s.GetContext(), charge)
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *PaymentServiceSuite) TestRecordPaymentIntentSucceeded() {
	err := s.service.RecordPaymentIntentSucceeded(s.GetContext(), &stripeapi.PaymentIntent{ID: "pi_test_payment"})
	s.NoError(err)

	stored, err := s.GetStores().PledgeRepo.Get(s.GetContext(), s.pledge.ID)
	s.NoError(err)
	s.Equal(pledge.PledgeStatePending, stored.State)

	// Replay leaves the state alone
	s.NoError(s.service.RecordPaymentIntentSucceeded(s.GetContext(), &stripeapi.PaymentIntent{ID: "pi_test_payment"}))
	stored, err = s.GetStores().PledgeRepo.Get(s.GetContext(), s.pledge.ID)
	s.NoError(err)
	s.Equal(pledge.PledgeStatePending, stored.State)
}

func (s *PaymentServiceSuite) TestRecordPaymentIntentWithoutPledgeIsSkipped() {
	// Invoice payment intents are settled by their own invoice events
	s.NoError(s.service.RecordPaymentIntentSucceeded(s.GetContext(), &stripeapi.PaymentIntent{ID: "pi_invoice_payment"}))
}
