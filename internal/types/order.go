package types

import (
	"fmt"

	"github.com/samber/lo"
)

// OrderStatus represents the refund-driven lifecycle of an order.
// Orders are created on successful payment capture, so there is no
// pending state: paid is the initial status.
type OrderStatus string

const (
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
	OrderStatusRefunded          OrderStatus = "refunded"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Validate() error {
	allowed := []OrderStatus{
		OrderStatusPaid,
		OrderStatusPartiallyRefunded,
		OrderStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid order status: %s", s)
	}
	return nil
}

// OrderBillingReason indicates why an order was created
type OrderBillingReason string

const (
	OrderBillingReasonPurchase           OrderBillingReason = "purchase"
	OrderBillingReasonSubscriptionCreate OrderBillingReason = "subscription_create"
	OrderBillingReasonSubscriptionCycle  OrderBillingReason = "subscription_cycle"
	OrderBillingReasonSubscriptionUpdate OrderBillingReason = "subscription_update"
)

func (r OrderBillingReason) String() string {
	return string(r)
}

func (r OrderBillingReason) Validate() error {
	allowed := []OrderBillingReason{
		OrderBillingReasonPurchase,
		OrderBillingReasonSubscriptionCreate,
		OrderBillingReasonSubscriptionCycle,
		OrderBillingReasonSubscriptionUpdate,
	}
	if !lo.Contains(allowed, r) {
		return fmt.Errorf("invalid order billing reason: %s", r)
	}
	return nil
}

// OrderBillingReasonFromStripe maps a Stripe invoice billing reason to ours
func OrderBillingReasonFromStripe(reason string) OrderBillingReason {
	switch reason {
	case "subscription_create":
		return OrderBillingReasonSubscriptionCreate
	case "subscription_cycle":
		return OrderBillingReasonSubscriptionCycle
	case "subscription_update":
		return OrderBillingReasonSubscriptionUpdate
	default:
		return OrderBillingReasonPurchase
	}
}
