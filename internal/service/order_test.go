package service

import (
	"testing"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/subscription"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type OrderServiceSuite struct {
	testutil.BaseServiceTestSuite
	service      OrderService
	subscription *subscription.Subscription
}

func TestOrderService(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewOrderService(ServiceParams{
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

	s.subscription = &subscription.Subscription{
		ID:                      "subs_test_order",
		ProcessorSubscriptionID: "sub_processor_test",
		CustomerID:              "cus_test_order",
		SubscriptionStatus:      types.SubscriptionStatusActive,
		BaseModel:               types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), s.subscription))
}

func (s *OrderServiceSuite) newCycleInvoice(id string) *stripeapi.Invoice {
	return &stripeapi.Invoice{
		ID:            id,
		Total:         12488,
		Subtotal:      9990,
		Currency:      stripeapi.Currency("eur"),
		BillingReason: stripeapi.InvoiceBillingReasonSubscriptionCycle,
		Metadata:      map[string]string{"customer_id": "cus_test_order"},
		Parent: &stripeapi.InvoiceParent{
			SubscriptionDetails: &stripeapi.InvoiceParentSubscriptionDetails{
				Subscription: &stripeapi.Subscription{ID: "sub_processor_test"},
			},
		},
	}
}

func (s *OrderServiceSuite) TestCreateFromInvoice() {
	o, err := s.service.CreateFromInvoice(s.GetContext(), s.newCycleInvoice("in_test_1"))
	s.NoError(err)
	s.Equal(int64(9990), o.Amount)
	s.Equal(int64(2498), o.TaxAmount)
	s.Equal(types.OrderStatusPaid, o.OrderStatus)
	s.Equal(types.OrderBillingReasonSubscriptionCycle, o.BillingReason)
	s.Equal("cus_test_order", o.CustomerID)
	s.Equal(s.subscription.ID, *o.SubscriptionID)
	s.NotEmpty(o.OrderNumber)

	// Replay resolves to the same order
	again, err := s.service.CreateFromInvoice(s.GetContext(), s.newCycleInvoice("in_test_1"))
	s.NoError(err)
	s.Equal(o.ID, again.ID)
}

func (s *OrderServiceSuite) TestCreateFromInvoiceUnknownSubscriptionIsRetryable() {
	invoice := s.newCycleInvoice("in_test_2")
	invoice.Parent.SubscriptionDetails.Subscription = &stripeapi.Subscription{ID: "sub_never_seen"}

	_, err := s.service.CreateFromInvoice(s.GetContext(), invoice)
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *OrderServiceSuite) TestCreateFromInvoiceWithoutCustomer() {
	invoice := s.newCycleInvoice("in_test_3")
	invoice.Metadata = nil

	_, err := s.service.CreateFromInvoice(s.GetContext(), invoice)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *OrderServiceSuite) TestCreateFromInvoiceOneOffPurchase() {
	invoice := &stripeapi.Invoice{
		ID:            "in_test_4",
		Total:         5000,
		Subtotal:      5000,
		Currency:      stripeapi.Currency("eur"),
		BillingReason: stripeapi.InvoiceBillingReasonManual,
		Metadata:      map[string]string{"customer_id": "cus_test_order"},
	}

	o, err := s.service.CreateFromInvoice(s.GetContext(), invoice)
	s.NoError(err)
	s.Equal(types.OrderBillingReasonPurchase, o.BillingReason)
	s.Nil(o.SubscriptionID)
	s.Equal(int64(0), o.TaxAmount)
}

func (s *OrderServiceSuite) TestMarkInvoicePaid() {
	o, err := s.service.CreateFromInvoice(s.GetContext(), s.newCycleInvoice("in_test_5"))
	s.NoError(err)

	paid, err := s.service.MarkInvoicePaid(s.GetContext(), "in_test_5")
	s.NoError(err)
	s.Equal(o.ID, paid.ID)

	_, err = s.service.MarkInvoicePaid(s.GetContext(), "in_never_seen")
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *OrderServiceSuite) TestLinkCharge() {
	o, err := s.service.CreateFromInvoice(s.GetContext(), s.newCycleInvoice("in_test_6"))
	s.NoError(err)

	s.NoError(s.service.LinkCharge(s.GetContext(), o.ID, "ch_link_test"))
	stored, err := s.service.Get(s.GetContext(), o.ID)
	s.NoError(err)
	s.Equal("ch_link_test", *stored.ProcessorChargeID)

	// Linking the same charge again is a no-op
	s.NoError(s.service.LinkCharge(s.GetContext(), o.ID, "ch_link_test"))
}

func (s *OrderServiceSuite) TestIncrementRefundsRejectsOverAllocation() {
	o, err := s.service.CreateFromInvoice(s.GetContext(), s.newCycleInvoice("in_test_7"))
	s.NoError(err)

	_, err = s.service.IncrementRefunds(s.GetContext(), o.ID, o.Amount+1, 0)
	s.Error(err)
	s.True(ierr.IsInvariantViolation(err))

	stored, err := s.service.Get(s.GetContext(), o.ID)
	s.NoError(err)
	s.Equal(int64(0), stored.RefundedAmount)
}
