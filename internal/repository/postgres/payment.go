package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/settledhq/settled/internal/domain/payment"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type paymentRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPaymentRepository(db postgres.IClient, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

const paymentColumns = `
	id, processor_charge_id, processor_payment_intent_id, order_id, pledge_id,
	amount, tax_amount, currency, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
	INSERT INTO payments (` + paymentColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)
	`

	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize payment metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, query,
		p.ID,
		p.ProcessorChargeID,
		p.ProcessorPaymentIntentID,
		p.OrderID,
		p.PledgeID,
		p.Amount,
		p.TaxAmount,
		p.Currency,
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
			WithHint("Failed to create payment").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *paymentRepository) GetByProcessorChargeID(ctx context.Context, chargeID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE processor_charge_id = $1`
	return r.getOne(ctx, query, chargeID)
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, orderID)
}

func (r *paymentRepository) getOne(ctx context.Context, query string, arg any) (*payment.Payment, error) {
	q := r.db.GetQuerier(ctx)

	var p payment.Payment
	var metadataJSON []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.ProcessorChargeID,
		&p.ProcessorPaymentIntentID,
		&p.OrderID,
		&p.PledgeID,
		&p.Amount,
		&p.TaxAmount,
		&p.Currency,
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
			return nil, ierr.NewError("payment not found").
				WithHint("The requested payment does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse payment metadata").
				Mark(ierr.ErrDatabase)
		}
	}

	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
	UPDATE payments SET
		processor_payment_intent_id = $2,
		order_id = $3,
		pledge_id = $4,
		amount = $5,
		tax_amount = $6,
		metadata = $7,
		status = $8,
		updated_at = $9,
		updated_by = $10
	WHERE id = $1
	`

	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize payment metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		p.ID,
		p.ProcessorPaymentIntentID,
		p.OrderID,
		p.PledgeID,
		p.Amount,
		p.TaxAmount,
		metadataJSON,
		p.Status,
		p.UpdatedAt,
		p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update payment").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("payment not found").
			Mark(ierr.ErrNotFound)
	}

	return nil
}
