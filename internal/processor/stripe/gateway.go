package stripe

import (
	"context"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/types"
)

// CreateRefundParams carries everything needed to execute a refund at
// the processor. Amount is the tax-inclusive total in minor units.
type CreateRefundParams struct {
	ChargeID string
	Amount   int64
	Reason   types.RefundReason
	Metadata types.Metadata
}

// Gateway is the processor surface the services depend on. Tests swap
// in a fake; production wires the Stripe client below.
type Gateway interface {
	CreateRefund(ctx context.Context, params CreateRefundParams) (*stripeapi.Refund, error)
	GetRefund(ctx context.Context, refundID string) (*stripeapi.Refund, error)
	GetCharge(ctx context.Context, chargeID string) (*stripeapi.Charge, error)
	VerifySignature(payload []byte, signature string) (*stripeapi.Event, error)
}
