package types

import (
	"fmt"

	"github.com/samber/lo"
)

// ExternalEventType identifies the processor webhook events we consume.
// Every type listed here must have a registered worker handler; the
// worker refuses to start otherwise.
type ExternalEventType string

const (
	ExternalEventChargeSucceeded        ExternalEventType = "charge.succeeded"
	ExternalEventChargeRefunded         ExternalEventType = "charge.refunded"
	ExternalEventRefundCreated          ExternalEventType = "refund.created"
	ExternalEventRefundUpdated          ExternalEventType = "refund.updated"
	ExternalEventRefundFailed           ExternalEventType = "refund.failed"
	ExternalEventPaymentIntentSucceeded ExternalEventType = "payment_intent.succeeded"
	ExternalEventInvoiceCreated         ExternalEventType = "invoice.created"
	ExternalEventInvoicePaid            ExternalEventType = "invoice.paid"
	ExternalEventSubscriptionUpdated    ExternalEventType = "customer.subscription.updated"
	ExternalEventSubscriptionDeleted    ExternalEventType = "customer.subscription.deleted"
	ExternalEventPayoutPaid             ExternalEventType = "payout.paid"
)

// ExternalEventTypes returns every event type the system handles.
func ExternalEventTypes() []ExternalEventType {
	return []ExternalEventType{
		ExternalEventChargeSucceeded,
		ExternalEventChargeRefunded,
		ExternalEventRefundCreated,
		ExternalEventRefundUpdated,
		ExternalEventRefundFailed,
		ExternalEventPaymentIntentSucceeded,
		ExternalEventInvoiceCreated,
		ExternalEventInvoicePaid,
		ExternalEventSubscriptionUpdated,
		ExternalEventSubscriptionDeleted,
		ExternalEventPayoutPaid,
	}
}

func (t ExternalEventType) String() string {
	return string(t)
}

func (t ExternalEventType) Validate() error {
	if !lo.Contains(ExternalEventTypes(), t) {
		return fmt.Errorf("unsupported external event type: %s", t)
	}
	return nil
}

// ExternalEventStatus tracks the processing lifecycle of a received event
type ExternalEventStatus string

const (
	ExternalEventStatusPending ExternalEventStatus = "pending"
	ExternalEventStatusHandled ExternalEventStatus = "handled"
	ExternalEventStatusFailed  ExternalEventStatus = "failed"
)

func (s ExternalEventStatus) String() string {
	return string(s)
}

func (s ExternalEventStatus) Validate() error {
	allowed := []ExternalEventStatus{
		ExternalEventStatusPending,
		ExternalEventStatusHandled,
		ExternalEventStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid external event status: %s", s)
	}
	return nil
}
