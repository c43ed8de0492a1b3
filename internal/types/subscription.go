package types

import (
	"fmt"

	"github.com/samber/lo"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// SubscriptionStatus mirrors the processor's subscription lifecycle
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusIncomplete,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid subscription status: %s", s)
	}
	return nil
}

// SubscriptionStatusFromStripe maps a Stripe subscription status to ours
func SubscriptionStatusFromStripe(status stripeapi.SubscriptionStatus) SubscriptionStatus {
	switch status {
	case stripeapi.SubscriptionStatusActive, stripeapi.SubscriptionStatusTrialing:
		return SubscriptionStatusActive
	case stripeapi.SubscriptionStatusPastDue:
		return SubscriptionStatusPastDue
	case stripeapi.SubscriptionStatusCanceled:
		return SubscriptionStatusCanceled
	case stripeapi.SubscriptionStatusUnpaid:
		return SubscriptionStatusUnpaid
	default:
		return SubscriptionStatusIncomplete
	}
}
