package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/settledhq/settled/internal/api"
	v1 "github.com/settledhq/settled/internal/api/v1"
	"github.com/settledhq/settled/internal/config"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
	stripegw "github.com/settledhq/settled/internal/processor/stripe"
	"github.com/settledhq/settled/internal/pubsub"
	"github.com/settledhq/settled/internal/pubsub/memory"
	"github.com/settledhq/settled/internal/repository"
	"github.com/settledhq/settled/internal/sentry"
	"github.com/settledhq/settled/internal/service"
	"github.com/settledhq/settled/internal/worker"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Processor gateway
			provideGateway,

			// PubSub
			memory.NewPubSub,

			// Repositories
			repository.NewOrderRepository,
			repository.NewRefundRepository,
			repository.NewPaymentRepository,
			repository.NewPledgeRepository,
			repository.NewSubscriptionRepository,
			repository.NewTransactionRepository,
			repository.NewExternalEventRepository,
		),
		postgres.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewOrderService,
			service.NewRefundService,
			service.NewPaymentService,
			service.NewSubscriptionService,
			service.NewTransactionService,
			service.NewExternalEventService,
		),
	)

	// Worker and API
	opts = append(opts,
		fx.Provide(
			provideRegistry,
			provideRunner,
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideGateway(cfg *config.Configuration, log *logger.Logger) stripegw.Gateway {
	return stripegw.NewClient(cfg, log)
}

func provideRegistry(params service.ServiceParams) *worker.Registry {
	return worker.NewRegistry(params)
}

func provideRunner(
	cfg *config.Configuration,
	log *logger.Logger,
	sentryService *sentry.Service,
	ps pubsub.PubSub,
	registry *worker.Registry,
	eventService service.ExternalEventService,
) (*worker.Runner, error) {
	return worker.NewRunner(cfg, log, sentryService, ps, registry, eventService)
}

func provideHandlers(
	gateway stripegw.Gateway,
	orderService service.OrderService,
	refundService service.RefundService,
	eventService service.ExternalEventService,
	runner *worker.Runner,
	log *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(log),
		Order:   v1.NewOrderHandler(orderService, refundService, log),
		Refund:  v1.NewRefundHandler(refundService, log),
		Webhook: v1.NewWebhookHandler(gateway, eventService, runner, log),
	}
}

func provideRouter(cfg *config.Configuration, handlers api.Handlers) *gin.Engine {
	return api.NewRouter(cfg, handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	runner *worker.Runner,
	log *logger.Logger,
) {
	startWorker(lc, runner, log)
	startAPIServer(lc, r, cfg, log)
}

func startWorker(lc fx.Lifecycle, runner *worker.Runner, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := runner.Run(context.Background()); err != nil {
					log.Fatalf("Failed to run event consumer: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return runner.Close()
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
