package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/config"
	"github.com/settledhq/settled/internal/domain/events"
	"github.com/settledhq/settled/internal/domain/order"
	"github.com/settledhq/settled/internal/domain/payment"
	"github.com/settledhq/settled/internal/domain/pledge"
	"github.com/settledhq/settled/internal/domain/refund"
	"github.com/settledhq/settled/internal/domain/subscription"
	"github.com/settledhq/settled/internal/domain/transaction"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
	"github.com/settledhq/settled/internal/sentry"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	OrderRepo        order.Repository
	RefundRepo       refund.Repository
	PaymentRepo      payment.Repository
	PledgeRepo       pledge.Repository
	SubscriptionRepo subscription.Repository
	TransactionRepo  transaction.Repository
	EventRepo        events.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	db      postgres.IClient
	logger  *logger.Logger
	config  *config.Configuration
	sentry  *sentry.Service
	gateway *FakeGateway
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	s.sentry = sentry.NewSentryService(cfg, s.logger)
	s.db = NewMockPostgresClient(s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		OrderRepo:        NewInMemoryOrderStore(),
		RefundRepo:       NewInMemoryRefundStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		PledgeRepo:       NewInMemoryPledgeStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		TransactionRepo:  NewInMemoryTransactionStore(),
		EventRepo:        NewInMemoryExternalEventStore(),
	}
	s.gateway = NewFakeGateway()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

func (s *BaseServiceTestSuite) GetGateway() *FakeGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
