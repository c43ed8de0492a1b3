package service

import (
	"context"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/payment"
	"github.com/settledhq/settled/internal/domain/pledge"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// PaymentService materializes payment records from processor capture
// events. The payment record is the join point every later refund
// event resolves through, so creation must tolerate out-of-order
// delivery of the entities it references.
type PaymentService interface {
	// CreateFromCharge records a captured charge against its order or
	// pledge. Idempotent on the processor charge id.
	CreateFromCharge(ctx context.Context, charge *stripeapi.Charge) (*payment.Payment, error)
	// RecordPaymentIntentSucceeded settles pledges whose payment
	// confirmation arrives as a bare payment intent event.
	RecordPaymentIntentSucceeded(ctx context.Context, intent *stripeapi.PaymentIntent) error
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) CreateFromCharge(ctx context.Context, charge *stripeapi.Charge) (*payment.Payment, error) {
	if charge == nil || charge.ID == "" {
		return nil, ierr.NewError("invalid charge payload").
			WithHint("Charge payload is missing").
			Mark(ierr.ErrValidation)
	}

	existing, err := s.PaymentRepo.GetByProcessorChargeID(ctx, charge.ID)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	var result *payment.Payment
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		p := &payment.Payment{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			ProcessorChargeID: charge.ID,
			Currency:          string(charge.Currency),
			Metadata:          types.Metadata(charge.Metadata),
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}
		if charge.PaymentIntent != nil {
			intentID := charge.PaymentIntent.ID
			p.ProcessorPaymentIntentID = &intentID
		}

		if invoiceID, ok := charge.Metadata["invoice_id"]; ok && invoiceID != "" {
			if err := s.attachToOrder(ctx, p, charge, invoiceID); err != nil {
				return err
			}
		} else {
			if err := s.attachToPledge(ctx, p, charge); err != nil {
				return err
			}
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *paymentService) attachToOrder(ctx context.Context, p *payment.Payment, charge *stripeapi.Charge, invoiceID string) error {
	o, err := s.OrderRepo.GetByProcessorInvoiceID(ctx, invoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// invoice.created has not been processed yet.
			return ierr.NewError("order not yet materialized for invoice").
				WithHintf("No order exists for invoice %s", invoiceID).
				Mark(ierr.ErrDependencyMissing)
		}
		return err
	}

	p.OrderID = &o.ID
	p.Amount = o.Amount
	p.TaxAmount = o.TaxAmount

	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return err
	}

	orderService := NewOrderService(s.ServiceParams)
	if err := orderService.LinkCharge(ctx, o.ID, charge.ID); err != nil {
		return err
	}

	s.Logger.Infow("created payment from charge",
		"payment_id", p.ID,
		"processor_charge_id", charge.ID,
		"order_id", o.ID,
	)

	return nil
}

func (s *paymentService) attachToPledge(ctx context.Context, p *payment.Payment, charge *stripeapi.Charge) error {
	if charge.PaymentIntent == nil {
		return ierr.NewError("charge has no resolvable owner").
			WithHint("Charge carries neither an invoice reference nor a payment intent").
			Mark(ierr.ErrValidation)
	}

	pl, err := s.PledgeRepo.GetByProcessorPaymentIntentID(ctx, charge.PaymentIntent.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The pledge is created by the checkout flow, which may not
			// have committed yet when the charge event arrives.
			return ierr.NewError("pledge not yet materialized for payment intent").
				WithHintf("No pledge exists for payment intent %s", charge.PaymentIntent.ID).
				Mark(ierr.ErrDependencyMissing)
		}
		return err
	}

	p.PledgeID = &pl.ID
	p.Amount = charge.Amount
	p.TaxAmount = 0

	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return err
	}

	s.Logger.Infow("created payment from charge",
		"payment_id", p.ID,
		"processor_charge_id", charge.ID,
		"pledge_id", pl.ID,
	)

	return nil
}

func (s *paymentService) RecordPaymentIntentSucceeded(ctx context.Context, intent *stripeapi.PaymentIntent) error {
	if intent == nil || intent.ID == "" {
		return ierr.NewError("invalid payment intent payload").
			WithHint("Payment intent payload is missing").
			Mark(ierr.ErrValidation)
	}

	pl, err := s.PledgeRepo.GetByProcessorPaymentIntentID(ctx, intent.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Payment intents unrelated to pledges (e.g. invoice
			// payments) are settled by their own events.
			s.Logger.Debugw("payment intent has no pledge, skipping",
				"processor_payment_intent_id", intent.ID,
			)
			return nil
		}
		return err
	}

	if pl.State != pledge.PledgeStateCreated {
		return nil
	}

	pl.State = pledge.PledgeStatePending
	pl.UpdatedAt = time.Now().UTC()
	pl.UpdatedBy = types.GetUserID(ctx)
	if err := s.PledgeRepo.Update(ctx, pl); err != nil {
		return err
	}

	s.Logger.Infow("pledge payment confirmed",
		"pledge_id", pl.ID,
		"processor_payment_intent_id", intent.ID,
	)

	return nil
}
