package service

import (
	"context"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/order"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// OrderService owns the order lifecycle and is the only writer of the
// order's refund accounting fields.
type OrderService interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	// IncrementRefunds applies a refund allocation to an order under a
	// row lock. Callers run inside an ambient transaction; a savepoint
	// keeps partial work invisible on failure.
	IncrementRefunds(ctx context.Context, orderID string, amount, taxAmount int64) (*order.Order, error)
	// CreateFromInvoice materializes an order from a processor invoice.
	// Idempotent on the processor invoice id.
	CreateFromInvoice(ctx context.Context, invoice *stripeapi.Invoice) (*order.Order, error)
	// MarkInvoicePaid confirms payment capture for the order behind the
	// invoice. The order must already exist.
	MarkInvoicePaid(ctx context.Context, processorInvoiceID string) (*order.Order, error)
	// LinkCharge records the processor charge on the order once known.
	LinkCharge(ctx context.Context, orderID string, chargeID string) error
}

type orderService struct {
	ServiceParams
}

func NewOrderService(params ServiceParams) OrderService {
	return &orderService{ServiceParams: params}
}

func (s *orderService) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.OrderRepo.Get(ctx, id)
}

func (s *orderService) IncrementRefunds(ctx context.Context, orderID string, amount, taxAmount int64) (*order.Order, error) {
	var result *order.Order

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.OrderRepo.GetForUpdate(ctx, orderID)
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

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("applied refund to order",
		"order_id", result.ID,
		"refunded_amount", result.RefundedAmount,
		"refunded_tax_amount", result.RefundedTaxAmount,
		"order_status", result.OrderStatus,
	)

	return result, nil
}

func (s *orderService) CreateFromInvoice(ctx context.Context, invoice *stripeapi.Invoice) (*order.Order, error) {
	if invoice == nil || invoice.ID == "" {
		return nil, ierr.NewError("invalid invoice").
			WithHint("Invoice payload is missing").
			Mark(ierr.ErrValidation)
	}

	// Replayed invoice.created deliveries resolve to the same order.
	existing, err := s.OrderRepo.GetByProcessorInvoiceID(ctx, invoice.ID)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	customerID, ok := invoice.Metadata["customer_id"]
	if !ok || customerID == "" {
		return nil, ierr.NewError("invoice has no customer reference").
			WithHint("Invoice metadata must carry a customer_id").
			Mark(ierr.ErrValidation)
	}

	billingReason := types.OrderBillingReasonFromStripe(string(invoice.BillingReason))

	var subscriptionID *string
	if billingReason != types.OrderBillingReasonPurchase {
		processorSubID := subscriptionIDFromInvoice(invoice)
		if processorSubID == "" {
			return nil, ierr.NewError("subscription invoice has no subscription reference").
				WithHint("Invoice is missing its subscription parent").
				Mark(ierr.ErrValidation)
		}

		// The subscription record is created by a causally prior event;
		// an unknown reference here is a race, not corruption.
		sub, err := s.SubscriptionRepo.GetByProcessorSubscriptionID(ctx, processorSubID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.NewError("subscription not yet materialized").
					WithHintf("Subscription %s has not been created yet", processorSubID).
					Mark(ierr.ErrDependencyMissing)
			}
			return nil, err
		}
		subscriptionID = &sub.ID
	}

	taxAmount := invoice.Total - invoice.Subtotal
	o := &order.Order{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		OrderNumber:        types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER_NUMBER),
		Amount:             invoice.Subtotal,
		TaxAmount:          taxAmount,
		Currency:           string(invoice.Currency),
		OrderStatus:        types.OrderStatusPaid,
		BillingReason:      billingReason,
		CustomerID:         customerID,
		SubscriptionID:     subscriptionID,
		ProcessorInvoiceID: &invoice.ID,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	if err := s.OrderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.Logger.Infow("created order from invoice",
		"order_id", o.ID,
		"processor_invoice_id", invoice.ID,
		"amount", o.Amount,
		"tax_amount", o.TaxAmount,
		"billing_reason", o.BillingReason,
	)

	return o, nil
}

func (s *orderService) MarkInvoicePaid(ctx context.Context, processorInvoiceID string) (*order.Order, error) {
	o, err := s.OrderRepo.GetByProcessorInvoiceID(ctx, processorInvoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// invoice.created has not been processed yet.
			return nil, ierr.NewError("order not yet materialized for invoice").
				WithHintf("No order exists for invoice %s", processorInvoiceID).
				Mark(ierr.ErrDependencyMissing)
		}
		return nil, err
	}

	s.Logger.Infow("invoice payment confirmed",
		"order_id", o.ID,
		"processor_invoice_id", processorInvoiceID,
	)

	return o, nil
}

func (s *orderService) LinkCharge(ctx context.Context, orderID string, chargeID string) error {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.ProcessorChargeID != nil && *o.ProcessorChargeID == chargeID {
		return nil
	}

	o.ProcessorChargeID = &chargeID
	o.UpdatedAt = time.Now().UTC()
	o.UpdatedBy = types.GetUserID(ctx)
	return s.OrderRepo.Update(ctx, o)
}

// subscriptionIDFromInvoice digs the subscription reference out of the
// invoice parent, guarding every hop since the processor omits the
// whole branch for one-off invoices.
func subscriptionIDFromInvoice(invoice *stripeapi.Invoice) string {
	if invoice.Parent == nil || invoice.Parent.SubscriptionDetails == nil {
		return ""
	}
	if invoice.Parent.SubscriptionDetails.Subscription == nil {
		return ""
	}
	return invoice.Parent.SubscriptionDetails.Subscription.ID
}
