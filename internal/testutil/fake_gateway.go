package testutil

import (
	"context"
	"fmt"
	"sync"

	stripeapi "github.com/stripe/stripe-go/v82"

	ierr "github.com/settledhq/settled/internal/errors"
	stripegw "github.com/settledhq/settled/internal/processor/stripe"
)

var _ stripegw.Gateway = (*FakeGateway)(nil)

// FakeGateway is an in-memory stand-in for the processor. By default
// CreateRefund answers with an immediately succeeded refund echoing
// the requested amount, which is how Stripe behaves for most charges.
type FakeGateway struct {
	mu sync.Mutex

	// CreateRefundErr, when set, is returned by CreateRefund
	CreateRefundErr error
	// RefundStatus overrides the status of created refunds
	RefundStatus string

	refunds     map[string]*stripeapi.Refund
	charges     map[string]*stripeapi.Charge
	createCalls []stripegw.CreateRefundParams
	seq         int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		RefundStatus: "succeeded",
		refunds:      make(map[string]*stripeapi.Refund),
		charges:      make(map[string]*stripeapi.Charge),
	}
}

func (g *FakeGateway) CreateRefund(ctx context.Context, params stripegw.CreateRefundParams) (*stripeapi.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.createCalls = append(g.createCalls, params)
	if g.CreateRefundErr != nil {
		return nil, g.CreateRefundErr
	}

	g.seq++
	processorRefund := &stripeapi.Refund{
		ID:       fmt.Sprintf("re_fake_%03d", g.seq),
		Amount:   params.Amount,
		Currency: stripeapi.Currency("eur"),
		Status:   stripeapi.RefundStatus(g.RefundStatus),
		Reason:   params.Reason.ToStripe(),
		Charge:   &stripeapi.Charge{ID: params.ChargeID},
	}
	g.refunds[processorRefund.ID] = processorRefund
	return processorRefund, nil
}

func (g *FakeGateway) GetRefund(ctx context.Context, refundID string) (*stripeapi.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	processorRefund, exists := g.refunds[refundID]
	if !exists {
		return nil, ierr.NewError("refund not found at processor").
			WithHintf("Refund %s was not found", refundID).
			Mark(ierr.ErrNotFound)
	}
	return processorRefund, nil
}

func (g *FakeGateway) GetCharge(ctx context.Context, chargeID string) (*stripeapi.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	charge, exists := g.charges[chargeID]
	if !exists {
		return nil, ierr.NewError("charge not found at processor").
			WithHintf("Charge %s was not found", chargeID).
			Mark(ierr.ErrNotFound)
	}
	return charge, nil
}

func (g *FakeGateway) VerifySignature(payload []byte, signature string) (*stripeapi.Event, error) {
	return nil, ierr.NewError("signature verification not supported by fake gateway").
		WithHint("Webhook signature is invalid").
		Mark(ierr.ErrValidation)
}

// SetCharge seeds a charge for GetCharge lookups
func (g *FakeGateway) SetCharge(charge *stripeapi.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[charge.ID] = charge
}

// CreateCalls returns the CreateRefund invocations so far
func (g *FakeGateway) CreateCalls() []stripegw.CreateRefundParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	calls := make([]stripegw.CreateRefundParams, len(g.createCalls))
	copy(calls, g.createCalls)
	return calls
}

// Clear resets all recorded state
func (g *FakeGateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = make(map[string]*stripeapi.Refund)
	g.charges = make(map[string]*stripeapi.Charge)
	g.createCalls = nil
	g.seq = 0
	g.CreateRefundErr = nil
	g.RefundStatus = "succeeded"
}
