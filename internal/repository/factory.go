package repository

import (
	"github.com/settledhq/settled/internal/domain/events"
	"github.com/settledhq/settled/internal/domain/order"
	"github.com/settledhq/settled/internal/domain/payment"
	"github.com/settledhq/settled/internal/domain/pledge"
	"github.com/settledhq/settled/internal/domain/refund"
	"github.com/settledhq/settled/internal/domain/subscription"
	"github.com/settledhq/settled/internal/domain/transaction"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
	postgresRepo "github.com/settledhq/settled/internal/repository/postgres"
)

func NewOrderRepository(db postgres.IClient, logger *logger.Logger) order.Repository {
	return postgresRepo.NewOrderRepository(db, logger)
}

func NewRefundRepository(db postgres.IClient, logger *logger.Logger) refund.Repository {
	return postgresRepo.NewRefundRepository(db, logger)
}

func NewPaymentRepository(db postgres.IClient, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewPledgeRepository(db postgres.IClient, logger *logger.Logger) pledge.Repository {
	return postgresRepo.NewPledgeRepository(db, logger)
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewTransactionRepository(db postgres.IClient, logger *logger.Logger) transaction.Repository {
	return postgresRepo.NewTransactionRepository(db, logger)
}

func NewExternalEventRepository(db postgres.IClient, logger *logger.Logger) events.Repository {
	return postgresRepo.NewExternalEventRepository(db, logger)
}
