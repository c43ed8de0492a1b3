package v1

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	stripegw "github.com/settledhq/settled/internal/processor/stripe"
	"github.com/settledhq/settled/internal/service"
	"github.com/settledhq/settled/internal/types"
)

// TaskPublisher enqueues a claimed event for asynchronous processing
type TaskPublisher interface {
	Enqueue(ctx context.Context, processorEventID string) error
}

// WebhookHandler receives processor webhook deliveries. It verifies,
// claims and enqueues; all business side effects happen in the worker.
type WebhookHandler struct {
	gateway      stripegw.Gateway
	eventService service.ExternalEventService
	publisher    TaskPublisher
	logger       *logger.Logger

	supported map[types.ExternalEventType]struct{}
}

func NewWebhookHandler(
	gateway stripegw.Gateway,
	eventService service.ExternalEventService,
	publisher TaskPublisher,
	logger *logger.Logger,
) *WebhookHandler {
	supported := make(map[types.ExternalEventType]struct{})
	for _, eventType := range types.ExternalEventTypes() {
		supported[eventType] = struct{}{}
	}

	return &WebhookHandler{
		gateway:      gateway,
		eventService: eventService,
		publisher:    publisher,
		logger:       logger,
		supported:    supported,
	}
}

// HandleStripeWebhook handles POST /v1/webhooks/stripe.
// Duplicate deliveries and unsupported event types are acknowledged
// with 200 so the processor stops retrying them.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	processorEvent, err := h.gateway.VerifySignature(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.Error(err)
		return
	}

	eventType := types.ExternalEventType(processorEvent.Type)
	if _, ok := h.supported[eventType]; !ok {
		h.logger.Debugw("ignoring unsupported event type",
			"processor_event_id", processorEvent.ID,
			"event_type", processorEvent.Type,
		)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	_, claimed, err := h.eventService.Ingest(ctx, processorEvent)
	if err != nil {
		c.Error(err)
		return
	}
	if !claimed {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if err := h.publisher.Enqueue(ctx, processorEvent.ID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
