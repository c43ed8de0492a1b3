package service

import (
	"context"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/refund"
	"github.com/settledhq/settled/internal/dto"
	ierr "github.com/settledhq/settled/internal/errors"
	stripegw "github.com/settledhq/settled/internal/processor/stripe"
	"github.com/settledhq/settled/internal/types"
)

// RefundService implements the refund flows: the merchant-initiated
// API path and the two processor-initiated reconciliation paths.
type RefundService interface {
	// Create executes a merchant-requested refund end to end: validate
	// against the order's remaining balance, allocate tax, execute at
	// the processor, persist, and apply the balance increment when the
	// processor settles synchronously.
	Create(ctx context.Context, req *dto.CreateRefundRequest) (*refund.Refund, error)
	Get(ctx context.Context, id string) (*refund.Refund, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*refund.Refund, error)
	// UpsertFromProcessor reconciles a processor refund object
	// (refund.created / refund.updated / refund.failed). Existing
	// records get status updates only; the order balance is credited
	// exactly once, on the first transition into succeeded.
	UpsertFromProcessor(ctx context.Context, processorRefund *stripeapi.Refund) error
	// HandleChargeRefunded reconciles a charge-level cumulative
	// refunded figure for which no discrete refund object is
	// guaranteed to exist yet.
	HandleChargeRefunded(ctx context.Context, charge *stripeapi.Charge) error
}

type refundService struct {
	ServiceParams
}

func NewRefundService(params ServiceParams) RefundService {
	return &refundService{ServiceParams: params}
}

func (s *refundService) Create(ctx context.Context, req *dto.CreateRefundRequest) (*refund.Refund, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *refund.Refund
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.OrderRepo.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}

		if o.Refunded() {
			return ierr.NewError("order is already fully refunded").
				WithHint("No balance remains on this order").
				WithReportableDetails(map[string]any{
					"order_id": o.ID,
				}).
				Mark(ierr.ErrPermissionDenied)
		}

		taxAmount, err := refund.CalculateTax(o, req.Amount)
		if err != nil {
			return err
		}

		pay, err := s.PaymentRepo.GetByOrderID(ctx, o.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewError("no payment found for order").
					WithHint("The order has no captured payment to refund against").
					WithReportableDetails(map[string]any{
						"order_id": o.ID,
					}).
					Mark(ierr.ErrNotFound)
			}
			return err
		}

		processorRefund, err := s.Gateway.CreateRefund(ctx, stripegw.CreateRefundParams{
			ChargeID: pay.ProcessorChargeID,
			Amount:   req.Amount + taxAmount,
			Reason:   req.Reason,
			Metadata: types.Metadata{"order_id": o.ID},
		})
		if err != nil {
			return err
		}

		rec := s.buildFromProcessor(ctx, processorRefund)
		rec.OrderID = &o.ID
		rec.PaymentID = &pay.ID
		rec.Amount = req.Amount
		rec.TaxAmount = taxAmount
		// The processor narrows our reason enum; keep the requested one.
		rec.Reason = req.Reason
		if req.Comment != nil {
			rec.Metadata = types.Metadata{"comment": *req.Comment}
		}

		if err := rec.Validate(); err != nil {
			return err
		}
		if err := s.RefundRepo.Create(ctx, rec); err != nil {
			return err
		}

		// Card refunds usually settle synchronously. Anything still
		// pending is credited later by the refund.updated path.
		if rec.Succeeded() {
			if err := s.applyToOrder(ctx, rec); err != nil {
				return err
			}
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created refund",
		"refund_id", result.ID,
		"order_id", req.OrderID,
		"amount", result.Amount,
		"tax_amount", result.TaxAmount,
		"refund_status", result.RefundStatus,
	)

	return result, nil
}

func (s *refundService) Get(ctx context.Context, id string) (*refund.Refund, error) {
	return s.RefundRepo.Get(ctx, id)
}

func (s *refundService) ListByOrderID(ctx context.Context, orderID string) ([]*refund.Refund, error) {
	return s.RefundRepo.ListByOrderID(ctx, orderID)
}

func (s *refundService) UpsertFromProcessor(ctx context.Context, processorRefund *stripeapi.Refund) error {
	if processorRefund == nil || processorRefund.ID == "" {
		return ierr.NewError("invalid refund payload").
			WithHint("Refund payload is missing").
			Mark(ierr.ErrValidation)
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.RefundRepo.GetByProcessorRefundID(ctx, processorRefund.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return s.createFromProcessor(ctx, processorRefund)
			}
			return err
		}
		return s.updateFromProcessor(ctx, existing, processorRefund)
	})
}

// updateFromProcessor applies status and settlement fields from the
// processor to a record we already hold. The balance credit fires on
// the pending→succeeded edge and never again.
func (s *refundService) updateFromProcessor(ctx context.Context, rec *refund.Refund, processorRefund *stripeapi.Refund) error {
	wasSucceeded := rec.Succeeded()

	rec.RefundStatus = types.RefundStatusFromStripe(processorRefund.Status)
	if processorRefund.FailureReason != "" {
		failure := string(processorRefund.FailureReason)
		rec.FailureReason = &failure
	}
	if processorRefund.ReceiptNumber != "" {
		receipt := processorRefund.ReceiptNumber
		rec.ReceiptNumber = &receipt
	}
	if processorRefund.BalanceTransaction != nil {
		txnID := processorRefund.BalanceTransaction.ID
		rec.ProcessorBalanceTxnID = &txnID
	}

	firstSuccess := !wasSucceeded && rec.Succeeded()
	if firstSuccess {
		now := time.Now().UTC()
		rec.SucceededAt = &now
	}

	rec.UpdatedAt = time.Now().UTC()
	rec.UpdatedBy = types.GetUserID(ctx)
	if err := s.RefundRepo.Update(ctx, rec); err != nil {
		return err
	}

	if firstSuccess {
		if err := s.applyToOwner(ctx, rec); err != nil {
			return err
		}
	}

	s.Logger.Infow("updated refund from processor",
		"refund_id", rec.ID,
		"processor_refund_id", processorRefund.ID,
		"refund_status", rec.RefundStatus,
		"credited", firstSuccess,
	)

	return nil
}

// createFromProcessor builds a local record for a refund we first hear
// about from the processor, e.g. one issued from their dashboard.
func (s *refundService) createFromProcessor(ctx context.Context, processorRefund *stripeapi.Refund) error {
	chargeID := chargeIDFromRefund(processorRefund)
	if chargeID == "" {
		return ierr.NewError("refund has no charge reference").
			WithHint("Refund payload carries no charge to resolve").
			Mark(ierr.ErrValidation)
	}

	pay, err := s.PaymentRepo.GetByProcessorChargeID(ctx, chargeID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The payment record is created by charge.succeeded, which
			// may not have been processed yet.
			return ierr.NewError("payment not yet materialized for charge").
				WithHintf("No payment exists for charge %s", chargeID).
				Mark(ierr.ErrDependencyMissing)
		}
		return err
	}

	rec := s.buildFromProcessor(ctx, processorRefund)
	rec.PaymentID = &pay.ID

	if pay.OrderID != nil {
		o, err := s.OrderRepo.GetForUpdate(ctx, *pay.OrderID)
		if err != nil {
			return err
		}
		amount, taxAmount, err := refund.CalculateProcessorAmounts(o, processorRefund.Amount)
		if err != nil {
			return err
		}
		rec.OrderID = pay.OrderID
		rec.Amount = amount
		rec.TaxAmount = taxAmount
	} else {
		// Pledges have no tax split; the raw amount stands.
		rec.PledgeID = pay.PledgeID
		rec.Amount = processorRefund.Amount
		rec.TaxAmount = 0
	}

	if err := rec.Validate(); err != nil {
		return err
	}
	if err := s.RefundRepo.Create(ctx, rec); err != nil {
		return err
	}

	if rec.Succeeded() {
		if err := s.applyToOwner(ctx, rec); err != nil {
			return err
		}
	}

	s.Logger.Infow("created refund from processor",
		"refund_id", rec.ID,
		"processor_refund_id", processorRefund.ID,
		"refund_status", rec.RefundStatus,
	)

	return nil
}

func (s *refundService) HandleChargeRefunded(ctx context.Context, charge *stripeapi.Charge) error {
	if charge == nil || charge.ID == "" {
		return ierr.NewError("invalid charge payload").
			WithHint("Charge payload is missing").
			Mark(ierr.ErrValidation)
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		pay, err := s.PaymentRepo.GetByProcessorChargeID(ctx, charge.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewError("payment not yet materialized for charge").
					WithHintf("No payment exists for charge %s", charge.ID).
					Mark(ierr.ErrDependencyMissing)
			}
			return err
		}

		if pay.PledgeID != nil {
			return s.reconcilePledgeBalance(ctx, *pay.PledgeID, charge.AmountRefunded)
		}
		return s.reconcileOrderBalance(ctx, *pay.OrderID, charge.AmountRefunded)
	})
}

// reconcileOrderBalance brings the order's refund accounting up to the
// processor's cumulative figure. A figure equal to the remaining
// balance takes the exact-remaining shortcut inside the inverse
// allocation, landing the order on exactly zero.
func (s *refundService) reconcileOrderBalance(ctx context.Context, orderID string, amountRefunded int64) error {
	o, err := s.OrderRepo.GetForUpdate(ctx, orderID)
	if err != nil {
		return err
	}

	accounted := o.RefundedAmount + o.RefundedTaxAmount
	delta := amountRefunded - accounted
	if delta <= 0 {
		// Discrete refund objects already covered this figure.
		return nil
	}

	amount, taxAmount, err := refund.CalculateProcessorAmounts(o, delta)
	if err != nil {
		return err
	}

	if err := o.IncrementRefunds(amount, taxAmount); err != nil {
		return err
	}

	o.UpdatedAt = time.Now().UTC()
	o.UpdatedBy = types.GetUserID(ctx)
	if err := s.OrderRepo.UpdateRefunds(ctx, o); err != nil {
		return err
	}

	s.Logger.Infow("reconciled order balance from charge",
		"order_id", o.ID,
		"delta", delta,
		"order_status", o.OrderStatus,
	)

	return nil
}

func (s *refundService) reconcilePledgeBalance(ctx context.Context, pledgeID string, amountRefunded int64) error {
	p, err := s.PledgeRepo.Get(ctx, pledgeID)
	if err != nil {
		return err
	}

	delta := amountRefunded - p.RefundedAmount
	if delta <= 0 {
		return nil
	}

	if err := p.IncrementRefunds(delta); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)
	if err := s.PledgeRepo.Update(ctx, p); err != nil {
		return err
	}

	s.Logger.Infow("reconciled pledge balance from charge",
		"pledge_id", p.ID,
		"delta", delta,
		"state", p.State,
	)

	return nil
}

// applyToOwner credits whichever entity owns the refund
func (s *refundService) applyToOwner(ctx context.Context, rec *refund.Refund) error {
	if rec.OrderID != nil {
		return s.applyToOrder(ctx, rec)
	}
	return s.applyToPledge(ctx, rec)
}

// applyToOrder increments the order's refund accounting and writes the
// ledger row. Runs inside the caller's transaction; the repository
// serializes concurrent refunds on the order row.
func (s *refundService) applyToOrder(ctx context.Context, rec *refund.Refund) error {
	o, err := s.OrderRepo.GetForUpdate(ctx, *rec.OrderID)
	if err != nil {
		return err
	}

	if err := o.IncrementRefunds(rec.Amount, rec.TaxAmount); err != nil {
		return err
	}

	o.UpdatedAt = time.Now().UTC()
	o.UpdatedBy = types.GetUserID(ctx)
	if err := s.OrderRepo.UpdateRefunds(ctx, o); err != nil {
		return err
	}

	return s.recordLedger(ctx, rec)
}

func (s *refundService) applyToPledge(ctx context.Context, rec *refund.Refund) error {
	p, err := s.PledgeRepo.Get(ctx, *rec.PledgeID)
	if err != nil {
		return err
	}

	if err := p.IncrementRefunds(rec.TotalAmount()); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.PledgeRepo.Update(ctx, p); err != nil {
		return err
	}

	return s.recordLedger(ctx, rec)
}

func (s *refundService) recordLedger(ctx context.Context, rec *refund.Refund) error {
	txnService := NewTransactionService(s.ServiceParams)
	_, err := txnService.RecordRefund(ctx, rec)
	return err
}

// buildFromProcessor maps the processor refund onto a fresh local
// record. Amounts and ownership are filled in by the caller.
func (s *refundService) buildFromProcessor(ctx context.Context, processorRefund *stripeapi.Refund) *refund.Refund {
	rec := &refund.Refund{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REFUND),
		Currency:          string(processorRefund.Currency),
		RefundStatus:      types.RefundStatusFromStripe(processorRefund.Status),
		Reason:            types.RefundReasonFromStripe(processorRefund.Reason),
		ProcessorRefundID: processorRefund.ID,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}

	if chargeID := chargeIDFromRefund(processorRefund); chargeID != "" {
		rec.ProcessorChargeID = &chargeID
	}
	if processorRefund.FailureReason != "" {
		failure := string(processorRefund.FailureReason)
		rec.FailureReason = &failure
	}
	if processorRefund.ReceiptNumber != "" {
		receipt := processorRefund.ReceiptNumber
		rec.ReceiptNumber = &receipt
	}
	if processorRefund.BalanceTransaction != nil {
		txnID := processorRefund.BalanceTransaction.ID
		rec.ProcessorBalanceTxnID = &txnID
	}
	if rec.Succeeded() {
		now := time.Now().UTC()
		rec.SucceededAt = &now
	}

	return rec
}

func chargeIDFromRefund(processorRefund *stripeapi.Refund) string {
	if processorRefund.Charge == nil {
		return ""
	}
	return processorRefund.Charge.ID
}
