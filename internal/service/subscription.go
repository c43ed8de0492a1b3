package service

import (
	"context"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/settledhq/settled/internal/domain/subscription"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// SubscriptionService keeps the local subscription mirror in step with
// the processor.
type SubscriptionService interface {
	// Create materializes a subscription record, typically at checkout
	// completion. Idempotent on the processor subscription id.
	Create(ctx context.Context, processorSub *stripeapi.Subscription, customerID string) (*subscription.Subscription, error)
	// UpdateFromProcessor applies processor-side lifecycle changes.
	// The record must already exist: update events for unknown
	// subscriptions are a delivery race, not a create instruction.
	UpdateFromProcessor(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error)
	// UpsertFromProcessor materializes the subscription mirror on first
	// sight and applies lifecycle changes afterwards. This is the
	// webhook entry point for customer.subscription.updated, which is
	// also the first event the processor sends for a new subscription.
	UpsertFromProcessor(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error)
	// MarkDeleted terminates the subscription mirror
	MarkDeleted(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) Create(ctx context.Context, processorSub *stripeapi.Subscription, customerID string) (*subscription.Subscription, error) {
	if processorSub == nil || processorSub.ID == "" {
		return nil, ierr.NewError("invalid subscription payload").
			WithHint("Subscription payload is missing").
			Mark(ierr.ErrValidation)
	}

	existing, err := s.SubscriptionRepo.GetByProcessorSubscriptionID(ctx, processorSub.ID)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	sub := &subscription.Subscription{
		ID:                      types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProcessorSubscriptionID: processorSub.ID,
		CustomerID:              customerID,
		SubscriptionStatus:      types.SubscriptionStatusFromStripe(processorSub.Status),
		CancelAtPeriodEnd:       processorSub.CancelAtPeriodEnd,
		BaseModel:               types.GetDefaultBaseModel(ctx),
	}
	if processorSub.StartDate > 0 {
		started := time.Unix(processorSub.StartDate, 0).UTC()
		sub.StartedAt = &started
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"processor_subscription_id", processorSub.ID,
		"subscription_status", sub.SubscriptionStatus,
	)

	return sub, nil
}

func (s *subscriptionService) UpdateFromProcessor(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error) {
	if processorSub == nil || processorSub.ID == "" {
		return nil, ierr.NewError("invalid subscription payload").
			WithHint("Subscription payload is missing").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubscriptionRepo.GetByProcessorSubscriptionID(ctx, processorSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("subscription not yet materialized").
				WithHintf("Subscription %s has not been created yet", processorSub.ID).
				Mark(ierr.ErrDependencyMissing)
		}
		return nil, err
	}

	sub.SubscriptionStatus = types.SubscriptionStatusFromStripe(processorSub.Status)
	sub.CancelAtPeriodEnd = processorSub.CancelAtPeriodEnd
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)

	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("updated subscription from processor",
		"subscription_id", sub.ID,
		"subscription_status", sub.SubscriptionStatus,
		"cancel_at_period_end", sub.CancelAtPeriodEnd,
	)

	return sub, nil
}

func (s *subscriptionService) UpsertFromProcessor(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error) {
	if processorSub == nil || processorSub.ID == "" {
		return nil, ierr.NewError("invalid subscription payload").
			WithHint("Subscription payload is missing").
			Mark(ierr.ErrValidation)
	}

	_, err := s.SubscriptionRepo.GetByProcessorSubscriptionID(ctx, processorSub.ID)
	if err == nil {
		return s.UpdateFromProcessor(ctx, processorSub)
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	customerID := customerIDFromSubscription(processorSub)
	if customerID == "" {
		return nil, ierr.NewError("subscription has no customer reference").
			WithHintf("Subscription %s carries no customer id", processorSub.ID).
			Mark(ierr.ErrValidation)
	}

	return s.Create(ctx, processorSub, customerID)
}

func (s *subscriptionService) MarkDeleted(ctx context.Context, processorSub *stripeapi.Subscription) (*subscription.Subscription, error) {
	if processorSub == nil || processorSub.ID == "" {
		return nil, ierr.NewError("invalid subscription payload").
			WithHint("Subscription payload is missing").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubscriptionRepo.GetByProcessorSubscriptionID(ctx, processorSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("subscription not yet materialized").
				WithHintf("Subscription %s has not been created yet", processorSub.ID).
				Mark(ierr.ErrDependencyMissing)
		}
		return nil, err
	}

	now := time.Now().UTC()
	sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	sub.EndedAt = &now
	sub.UpdatedAt = now
	sub.UpdatedBy = types.GetUserID(ctx)

	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription deleted at processor",
		"subscription_id", sub.ID,
		"processor_subscription_id", processorSub.ID,
	)

	return sub, nil
}

func customerIDFromSubscription(processorSub *stripeapi.Subscription) string {
	if processorSub.Customer != nil && processorSub.Customer.ID != "" {
		return processorSub.Customer.ID
	}
	return processorSub.Metadata["customer_id"]
}
