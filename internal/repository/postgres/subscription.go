package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/settledhq/settled/internal/domain/subscription"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `
	id, processor_subscription_id, customer_id, subscription_status,
	cancel_at_period_end, started_at, ended_at, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
	INSERT INTO subscriptions (` + subscriptionColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	`

	metadataJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize subscription metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, query,
		s.ID,
		s.ProcessorSubscriptionID,
		s.CustomerID,
		s.SubscriptionStatus,
		s.CancelAtPeriodEnd,
		s.StartedAt,
		s.EndedAt,
		metadataJSON,
		s.TenantID,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
		s.CreatedBy,
		s.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *subscriptionRepository) GetByProcessorSubscriptionID(ctx context.Context, processorSubscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE processor_subscription_id = $1`
	return r.getOne(ctx, query, processorSubscriptionID)
}

func (r *subscriptionRepository) getOne(ctx context.Context, query string, arg any) (*subscription.Subscription, error) {
	q := r.db.GetQuerier(ctx)

	var s subscription.Subscription
	var metadataJSON []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&s.ID,
		&s.ProcessorSubscriptionID,
		&s.CustomerID,
		&s.SubscriptionStatus,
		&s.CancelAtPeriodEnd,
		&s.StartedAt,
		&s.EndedAt,
		&metadataJSON,
		&s.TenantID,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CreatedBy,
		&s.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHint("The requested subscription does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse subscription metadata").
				Mark(ierr.ErrDatabase)
		}
	}

	return &s, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
	UPDATE subscriptions SET
		customer_id = $2,
		subscription_status = $3,
		cancel_at_period_end = $4,
		started_at = $5,
		ended_at = $6,
		metadata = $7,
		status = $8,
		updated_at = $9,
		updated_by = $10
	WHERE id = $1
	`

	metadataJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize subscription metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		s.ID,
		s.CustomerID,
		s.SubscriptionStatus,
		s.CancelAtPeriodEnd,
		s.StartedAt,
		s.EndedAt,
		metadataJSON,
		s.Status,
		s.UpdatedAt,
		s.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("subscription not found").
			Mark(ierr.ErrNotFound)
	}

	return nil
}
