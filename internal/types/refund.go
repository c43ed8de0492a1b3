package types

import (
	"fmt"

	"github.com/samber/lo"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// RefundStatus mirrors the payment processor's refund lifecycle
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
	RefundStatusCanceled  RefundStatus = "canceled"
)

func (s RefundStatus) String() string {
	return string(s)
}

func (s RefundStatus) Validate() error {
	allowed := []RefundStatus{
		RefundStatusPending,
		RefundStatusSucceeded,
		RefundStatusFailed,
		RefundStatusCanceled,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid refund status: %s", s)
	}
	return nil
}

// RefundStatusFromStripe maps a Stripe refund status to ours.
// Unknown statuses are treated as pending until a later event settles them.
func RefundStatusFromStripe(status stripeapi.RefundStatus) RefundStatus {
	switch status {
	case stripeapi.RefundStatusSucceeded:
		return RefundStatusSucceeded
	case stripeapi.RefundStatusFailed:
		return RefundStatusFailed
	case stripeapi.RefundStatusCanceled:
		return RefundStatusCanceled
	default:
		return RefundStatusPending
	}
}

// RefundReason is the merchant-facing reason for a refund
type RefundReason string

const (
	RefundReasonDuplicate           RefundReason = "duplicate"
	RefundReasonFraudulent          RefundReason = "fraudulent"
	RefundReasonRequestedByCustomer RefundReason = "requested_by_customer"
	RefundReasonServiceDisruption   RefundReason = "service_disruption"
	RefundReasonOther               RefundReason = "other"
)

func (r RefundReason) String() string {
	return string(r)
}

func (r RefundReason) Validate() error {
	allowed := []RefundReason{
		RefundReasonDuplicate,
		RefundReasonFraudulent,
		RefundReasonRequestedByCustomer,
		RefundReasonServiceDisruption,
		RefundReasonOther,
	}
	if !lo.Contains(allowed, r) {
		return fmt.Errorf("invalid refund reason: %s", r)
	}
	return nil
}

// ToStripe maps our reason onto the processor's narrower enum.
// Reasons Stripe does not model are reported as requested_by_customer;
// the original reason is kept on our record.
func (r RefundReason) ToStripe() stripeapi.RefundReason {
	switch r {
	case RefundReasonDuplicate:
		return stripeapi.RefundReasonDuplicate
	case RefundReasonFraudulent:
		return stripeapi.RefundReasonFraudulent
	default:
		return stripeapi.RefundReasonRequestedByCustomer
	}
}

// RefundReasonFromStripe maps a Stripe refund reason to ours
func RefundReasonFromStripe(reason stripeapi.RefundReason) RefundReason {
	switch reason {
	case stripeapi.RefundReasonDuplicate:
		return RefundReasonDuplicate
	case stripeapi.RefundReasonFraudulent:
		return RefundReasonFraudulent
	case stripeapi.RefundReasonRequestedByCustomer:
		return RefundReasonRequestedByCustomer
	default:
		return RefundReasonOther
	}
}
