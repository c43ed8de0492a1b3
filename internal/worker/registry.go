package worker

import (
	"context"
	"encoding/json"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/events"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/service"
	"github.com/settledhq/settled/internal/types"
)

// HandlerFunc executes the business side effects of one claimed event.
// It runs inside the database transaction opened by the event service.
type HandlerFunc func(ctx context.Context, event *events.ExternalEvent) error

// Registry maps each supported event type to its handler. The map is
// built explicitly at startup so a newly declared event type without a
// handler fails Validate instead of being silently dropped at runtime.
type Registry struct {
	handlers map[types.ExternalEventType]HandlerFunc
}

func NewRegistry(params service.ServiceParams) *Registry {
	orderService := service.NewOrderService(params)
	refundService := service.NewRefundService(params)
	paymentService := service.NewPaymentService(params)
	subscriptionService := service.NewSubscriptionService(params)
	transactionService := service.NewTransactionService(params)

	r := &Registry{handlers: make(map[types.ExternalEventType]HandlerFunc)}

	r.handlers[types.ExternalEventChargeSucceeded] = func(ctx context.Context, event *events.ExternalEvent) error {
		var charge stripeapi.Charge
		if err := unmarshalPayload(event, &charge); err != nil {
			return err
		}
		_, err := paymentService.CreateFromCharge(ctx, &charge)
		return err
	}

	r.handlers[types.ExternalEventChargeRefunded] = func(ctx context.Context, event *events.ExternalEvent) error {
		var charge stripeapi.Charge
		if err := unmarshalPayload(event, &charge); err != nil {
			return err
		}
		return refundService.HandleChargeRefunded(ctx, &charge)
	}

	refundUpsert := func(ctx context.Context, event *events.ExternalEvent) error {
		var processorRefund stripeapi.Refund
		if err := unmarshalPayload(event, &processorRefund); err != nil {
			return err
		}
		return refundService.UpsertFromProcessor(ctx, &processorRefund)
	}
	r.handlers[types.ExternalEventRefundCreated] = refundUpsert
	r.handlers[types.ExternalEventRefundUpdated] = refundUpsert
	r.handlers[types.ExternalEventRefundFailed] = refundUpsert

	r.handlers[types.ExternalEventPaymentIntentSucceeded] = func(ctx context.Context, event *events.ExternalEvent) error {
		var intent stripeapi.PaymentIntent
		if err := unmarshalPayload(event, &intent); err != nil {
			return err
		}
		return paymentService.RecordPaymentIntentSucceeded(ctx, &intent)
	}

	r.handlers[types.ExternalEventInvoiceCreated] = func(ctx context.Context, event *events.ExternalEvent) error {
		var invoice stripeapi.Invoice
		if err := unmarshalPayload(event, &invoice); err != nil {
			return err
		}
		_, err := orderService.CreateFromInvoice(ctx, &invoice)
		return err
	}

	r.handlers[types.ExternalEventInvoicePaid] = func(ctx context.Context, event *events.ExternalEvent) error {
		var invoice stripeapi.Invoice
		if err := unmarshalPayload(event, &invoice); err != nil {
			return err
		}
		_, err := orderService.MarkInvoicePaid(ctx, invoice.ID)
		return err
	}

	r.handlers[types.ExternalEventSubscriptionUpdated] = func(ctx context.Context, event *events.ExternalEvent) error {
		var processorSub stripeapi.Subscription
		if err := unmarshalPayload(event, &processorSub); err != nil {
			return err
		}
		_, err := subscriptionService.UpsertFromProcessor(ctx, &processorSub)
		return err
	}

	r.handlers[types.ExternalEventSubscriptionDeleted] = func(ctx context.Context, event *events.ExternalEvent) error {
		var processorSub stripeapi.Subscription
		if err := unmarshalPayload(event, &processorSub); err != nil {
			return err
		}
		_, err := subscriptionService.MarkDeleted(ctx, &processorSub)
		return err
	}

	r.handlers[types.ExternalEventPayoutPaid] = func(ctx context.Context, event *events.ExternalEvent) error {
		var payout stripeapi.Payout
		if err := unmarshalPayload(event, &payout); err != nil {
			return err
		}
		_, err := transactionService.RecordPayout(ctx, &payout)
		return err
	}

	return r
}

// Validate asserts every declared event type has a handler
func (r *Registry) Validate() error {
	for _, eventType := range types.ExternalEventTypes() {
		if _, ok := r.handlers[eventType]; !ok {
			return ierr.NewError("unhandled event type").
				WithHintf("No handler registered for event type %s", eventType).
				Mark(ierr.ErrSystem)
		}
	}
	return nil
}

// Handler returns the handler for the given event type
func (r *Registry) Handler(eventType types.ExternalEventType) (HandlerFunc, error) {
	h, ok := r.handlers[eventType]
	if !ok {
		return nil, ierr.NewError("unsupported event type").
			WithHintf("Event type %s has no registered handler", eventType).
			Mark(ierr.ErrValidation)
	}
	return h, nil
}

func unmarshalPayload(event *events.ExternalEvent, target interface{}) error {
	if err := json.Unmarshal(event.Payload, target); err != nil {
		return ierr.WithError(err).
			WithHintf("Payload of event %s is not valid JSON", event.ProcessorEventID).
			Mark(ierr.ErrValidation)
	}
	return nil
}
