package stripe

import (
	"context"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/settledhq/settled/internal/config"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
)

// Client implements Gateway on top of the Stripe API
type Client struct {
	client        *stripeapi.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewClient creates a new Stripe-backed gateway
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		client:        stripeapi.NewClient(cfg.Stripe.SecretKey, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        logger,
	}
}

// CreateRefund executes a refund against a charge at Stripe
func (c *Client) CreateRefund(ctx context.Context, params CreateRefundParams) (*stripeapi.Refund, error) {
	refundParams := &stripeapi.RefundCreateParams{
		Charge: stripeapi.String(params.ChargeID),
		Amount: stripeapi.Int64(params.Amount),
		Reason: stripeapi.String(string(params.Reason.ToStripe())),
	}
	for k, v := range params.Metadata {
		refundParams.AddMetadata(k, v)
	}

	refund, err := c.client.V1Refunds.Create(ctx, refundParams)
	if err != nil {
		c.logger.Errorw("failed to create refund in Stripe",
			"error", err,
			"charge_id", params.ChargeID,
			"amount", params.Amount,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create refund at the payment processor").
			WithReportableDetails(map[string]any{
				"charge_id": params.ChargeID,
				"amount":    params.Amount,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return refund, nil
}

// GetRefund retrieves a refund from Stripe
func (c *Client) GetRefund(ctx context.Context, refundID string) (*stripeapi.Refund, error) {
	refund, err := c.client.V1Refunds.Retrieve(ctx, refundID, nil)
	if err != nil {
		c.logger.Errorw("failed to get refund from Stripe",
			"error", err,
			"refund_id", refundID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to retrieve refund from the payment processor").
			Mark(ierr.ErrHTTPClient)
	}
	return refund, nil
}

// GetCharge retrieves a charge from Stripe
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*stripeapi.Charge, error) {
	charge, err := c.client.V1Charges.Retrieve(ctx, chargeID, nil)
	if err != nil {
		c.logger.Errorw("failed to get charge from Stripe",
			"error", err,
			"charge_id", chargeID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to retrieve charge from the payment processor").
			Mark(ierr.ErrHTTPClient)
	}
	return charge, nil
}

// VerifySignature verifies a webhook payload and returns the parsed
// event. API version mismatch is ignored so processor-side version
// bumps do not break ingestion.
func (c *Client) VerifySignature(payload []byte, signature string) (*stripeapi.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, options)
	if err != nil {
		c.logger.Errorw("Stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}
