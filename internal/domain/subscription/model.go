package subscription

import (
	"time"

	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// Subscription mirrors the processor's subscription object for orders
// created on subscription billing cycles.
type Subscription struct {
	// Unique identifier for this subscription
	ID string `json:"id" db:"id"`
	// The processor_subscription_id at the payment processor
	ProcessorSubscriptionID string `json:"processor_subscription_id" db:"processor_subscription_id"`
	// The customer_id links the subscription to the paying customer
	CustomerID string `json:"customer_id" db:"customer_id"`
	// The subscription_status mirrors the processor lifecycle
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	// The cancel_at_period_end flag tells whether the subscription winds down
	CancelAtPeriodEnd bool `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	// The started_at timestamp shows when the subscription began (optional)
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	// The ended_at timestamp shows when the subscription terminated (optional)
	EndedAt *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	// The metadata field contains additional custom key-value pairs (optional)
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.ProcessorSubscriptionID == "" {
		return ierr.NewError("invalid processor subscription id").
			WithHint("Processor subscription id is invalid").
			Mark(ierr.ErrValidation)
	}
	if s.CustomerID == "" {
		return ierr.NewError("invalid customer id").
			WithHint("Customer id is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return ierr.NewError("invalid subscription status").
			WithHint("Subscription status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}
