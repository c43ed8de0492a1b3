package postgres

import (
	"context"

	"go.uber.org/fx"

	"github.com/settledhq/settled/internal/logger"
	sentryService "github.com/settledhq/settled/internal/sentry"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// GetQuerier returns the current transaction querier if in a
	// transaction, or the base connection
	GetQuerier(ctx context.Context) Querier
}

// Module provides fx options to integrate the postgres client with the application
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			func(db *DB, sentry *sentryService.Service, log *logger.Logger) IClient {
				return NewSentryClient(db, sentry, log)
			},
		),
	)
}
