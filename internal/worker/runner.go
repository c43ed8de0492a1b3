package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/settledhq/settled/internal/config"
	"github.com/settledhq/settled/internal/domain/events"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/pubsub"
	"github.com/settledhq/settled/internal/sentry"
	"github.com/settledhq/settled/internal/service"
	"github.com/settledhq/settled/internal/types"
)

const handlerName = "external_events_consumer"

// Runner consumes claimed external events and executes their handlers.
// Ingress (the webhook endpoint) claims the event and publishes only
// the processor event id; the runner reloads the record so the payload
// processed is the one the claim persisted, not whatever is in flight.
type Runner struct {
	router       *message.Router
	pubsub       pubsub.PubSub
	registry     *Registry
	eventService service.ExternalEventService
	sentry       *sentry.Service
	config       *config.WorkerConfig
	logger       *logger.Logger
}

func NewRunner(
	cfg *config.Configuration,
	log *logger.Logger,
	sentryService *sentry.Service,
	ps pubsub.PubSub,
	registry *Registry,
	eventService service.ExternalEventService,
) (*Runner, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	router, err := message.NewRouter(
		message.RouterConfig{},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		router:       router,
		pubsub:       ps,
		registry:     registry,
		eventService: eventService,
		sentry:       sentryService,
		config:       &cfg.Worker,
		logger:       log,
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		r.finalize,
		RetryMiddleware(&cfg.Worker, log),
	)

	router.AddNoPublisherHandler(
		handlerName,
		r.config.Topic,
		ps,
		r.process,
	)

	return r, nil
}

// Enqueue publishes a claimed event id for asynchronous processing
func (r *Runner) Enqueue(ctx context.Context, processorEventID string) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(processorEventID))
	if requestID := types.GetRequestID(ctx); requestID != "" {
		middleware.SetCorrelationID(requestID, msg)
	}
	return r.pubsub.Publish(ctx, r.config.Topic, msg)
}

func (r *Runner) process(msg *message.Message) error {
	processorEventID := string(msg.Payload)

	ctx, cancel := context.WithTimeout(msg.Context(), r.config.AttemptTimeout)
	defer cancel()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	tx, ctx := r.sentry.StartTransaction(ctx, "worker.process_event")
	if tx != nil {
		defer tx.Finish()
	}

	return r.eventService.Handle(ctx, processorEventID, func(ctx context.Context, event *events.ExternalEvent) error {
		handler, err := r.registry.Handler(event.EventType)
		if err != nil {
			return err
		}
		return handler(ctx, event)
	})
}

// finalize records the terminal disposition of a message the retry
// layer gave up on. The failure is persisted on the event record and
// reported, then the message is acked: redelivering a terminal error
// replays the same outcome.
func (r *Runner) finalize(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := h(msg)
		if err == nil {
			return msgs, nil
		}
		if errors.Is(err, context.Canceled) {
			// Shutdown, not a handler verdict
			return msgs, err
		}

		processorEventID := string(msg.Payload)
		r.sentry.AddBreadcrumb("worker", "event processing gave up", map[string]interface{}{
			"processor_event_id": processorEventID,
			"attempt":            msg.Metadata.Get(attemptMetadataKey),
		})
		r.sentry.CaptureException(err)
		r.logger.Errorw("event processing failed",
			"processor_event_id", processorEventID,
			"attempt", msg.Metadata.Get(attemptMetadataKey),
			"correlation_id", middleware.MessageCorrelationID(msg),
			"error", err,
		)

		markCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		markCtx = types.SetTenantID(markCtx, types.DefaultTenantID)
		markCtx = types.SetUserID(markCtx, types.DefaultUserID)
		if markErr := r.eventService.MarkFailed(markCtx, processorEventID, err); markErr != nil {
			r.logger.Errorw("failed to record event failure",
				"processor_event_id", processorEventID,
				"error", markErr,
			)
		}

		return msgs, nil
	}
}

// Run starts the consumer and blocks until the context is canceled
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Infow("starting event consumer", "topic", r.config.Topic)
	return r.router.Run(ctx)
}

// Close gracefully shuts down the consumer
func (r *Runner) Close() error {
	r.logger.Info("closing event consumer")
	r.sentry.Flush(2)
	return r.router.Close()
}
