package service

import (
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
	stripegw "github.com/settledhq/settled/internal/processor/stripe"
	sentryService "github.com/settledhq/settled/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentryService.Service

	// Repositories
	OrderRepo        order.Repository
	RefundRepo       refund.Repository
	PaymentRepo      payment.Repository
	PledgeRepo       pledge.Repository
	SubscriptionRepo subscription.Repository
	TransactionRepo  transaction.Repository
	EventRepo        events.Repository

	// External collaborators
	Gateway stripegw.Gateway
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentryService.Service,
	orderRepo order.Repository,
	refundRepo refund.Repository,
	paymentRepo payment.Repository,
	pledgeRepo pledge.Repository,
	subscriptionRepo subscription.Repository,
	transactionRepo transaction.Repository,
	eventRepo events.Repository,
	gateway stripegw.Gateway,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Sentry:           sentry,
		OrderRepo:        orderRepo,
		RefundRepo:       refundRepo,
		PaymentRepo:      paymentRepo,
		PledgeRepo:       pledgeRepo,
		SubscriptionRepo: subscriptionRepo,
		TransactionRepo:  transactionRepo,
		EventRepo:        eventRepo,
		Gateway:          gateway,
	}
}
