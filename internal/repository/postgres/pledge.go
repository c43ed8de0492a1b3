package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/settledhq/settled/internal/domain/pledge"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type pledgeRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPledgeRepository(db postgres.IClient, logger *logger.Logger) pledge.Repository {
	return &pledgeRepository{db: db, logger: logger}
}

const pledgeColumns = `
	id, processor_payment_intent_id, amount, refunded_amount, currency, state,
	metadata, tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *pledgeRepository) Create(ctx context.Context, p *pledge.Pledge) error {
	query := `
	INSERT INTO pledges (` + pledgeColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)
	`

	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize pledge metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, query,
		p.ID,
		p.ProcessorPaymentIntentID,
		p.Amount,
		p.RefundedAmount,
		p.Currency,
		p.State,
		metadataJSON,
		p.TenantID,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
		p.CreatedBy,
		p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create pledge").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *pledgeRepository) Get(ctx context.Context, id string) (*pledge.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *pledgeRepository) GetByProcessorPaymentIntentID(ctx context.Context, paymentIntentID string) (*pledge.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE processor_payment_intent_id = $1`
	return r.getOne(ctx, query, paymentIntentID)
}

func (r *pledgeRepository) getOne(ctx context.Context, query string, arg any) (*pledge.Pledge, error) {
	q := r.db.GetQuerier(ctx)

	var p pledge.Pledge
	var metadataJSON []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.ProcessorPaymentIntentID,
		&p.Amount,
		&p.RefundedAmount,
		&p.Currency,
		&p.State,
		&metadataJSON,
		&p.TenantID,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CreatedBy,
		&p.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("pledge not found").
				WithHint("The requested pledge does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get pledge").
			Mark(ierr.ErrDatabase)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse pledge metadata").
				Mark(ierr.ErrDatabase)
		}
	}

	return &p, nil
}

func (r *pledgeRepository) Update(ctx context.Context, p *pledge.Pledge) error {
	query := `
	UPDATE pledges SET
		refunded_amount = $2,
		state = $3,
		metadata = $4,
		status = $5,
		updated_at = $6,
		updated_by = $7
	WHERE id = $1
	`

	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize pledge metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		p.ID,
		p.RefundedAmount,
		p.State,
		metadataJSON,
		p.Status,
		p.UpdatedAt,
		p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update pledge").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("pledge not found").
			Mark(ierr.ErrNotFound)
	}

	return nil
}
