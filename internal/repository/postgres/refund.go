package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/settledhq/settled/internal/domain/refund"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type refundRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewRefundRepository(db postgres.IClient, logger *logger.Logger) refund.Repository {
	return &refundRepository{db: db, logger: logger}
}

const refundColumns = `
	id, order_id, pledge_id, payment_id, amount, tax_amount, currency,
	refund_status, reason, failure_reason, processor_refund_id,
	processor_charge_id, processor_balance_txn_id, receipt_number,
	succeeded_at, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *refundRepository) Create(ctx context.Context, rf *refund.Refund) error {
	query := `
	INSERT INTO refunds (` + refundColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22
	)
	`

	metadataJSON, err := json.Marshal(rf.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize refund metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, query,
		rf.ID,
		rf.OrderID,
		rf.PledgeID,
		rf.PaymentID,
		rf.Amount,
		rf.TaxAmount,
		rf.Currency,
		rf.RefundStatus,
		rf.Reason,
		rf.FailureReason,
		rf.ProcessorRefundID,
		rf.ProcessorChargeID,
		rf.ProcessorBalanceTxnID,
		rf.ReceiptNumber,
		rf.SucceededAt,
		metadataJSON,
		rf.TenantID,
		rf.Status,
		rf.CreatedAt,
		rf.UpdatedAt,
		rf.CreatedBy,
		rf.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create refund").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *refundRepository) Get(ctx context.Context, id string) (*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *refundRepository) GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE processor_refund_id = $1`
	return r.getOne(ctx, query, processorRefundID)
}

func (r *refundRepository) getOne(ctx context.Context, query string, arg any) (*refund.Refund, error) {
	q := r.db.GetQuerier(ctx)

	var rf refund.Refund
	var metadataJSON []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&rf.ID,
		&rf.OrderID,
		&rf.PledgeID,
		&rf.PaymentID,
		&rf.Amount,
		&rf.TaxAmount,
		&rf.Currency,
		&rf.RefundStatus,
		&rf.Reason,
		&rf.FailureReason,
		&rf.ProcessorRefundID,
		&rf.ProcessorChargeID,
		&rf.ProcessorBalanceTxnID,
		&rf.ReceiptNumber,
		&rf.SucceededAt,
		&metadataJSON,
		&rf.TenantID,
		&rf.Status,
		&rf.CreatedAt,
		&rf.UpdatedAt,
		&rf.CreatedBy,
		&rf.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("refund not found").
				WithHint("The requested refund does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get refund").
			Mark(ierr.ErrDatabase)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rf.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse refund metadata").
				Mark(ierr.ErrDatabase)
		}
	}

	return &rf, nil
}

func (r *refundRepository) Update(ctx context.Context, rf *refund.Refund) error {
	query := `
	UPDATE refunds SET
		refund_status = $2,
		reason = $3,
		failure_reason = $4,
		processor_balance_txn_id = $5,
		receipt_number = $6,
		succeeded_at = $7,
		metadata = $8,
		status = $9,
		updated_at = $10,
		updated_by = $11
	WHERE id = $1
	`

	metadataJSON, err := json.Marshal(rf.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize refund metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		rf.ID,
		rf.RefundStatus,
		rf.Reason,
		rf.FailureReason,
		rf.ProcessorBalanceTxnID,
		rf.ReceiptNumber,
		rf.SucceededAt,
		metadataJSON,
		rf.Status,
		rf.UpdatedAt,
		rf.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update refund").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("refund not found").
			Mark(ierr.ErrNotFound)
	}

	return nil
}

func (r *refundRepository) ListByOrderID(ctx context.Context, orderID string) ([]*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE order_id = $1 ORDER BY created_at ASC`

	q := r.db.GetQuerier(ctx)
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list refunds").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var refunds []*refund.Refund
	for rows.Next() {
		var rf refund.Refund
		var metadataJSON []byte

		err := rows.Scan(
			&rf.ID,
			&rf.OrderID,
			&rf.PledgeID,
			&rf.PaymentID,
			&rf.Amount,
			&rf.TaxAmount,
			&rf.Currency,
			&rf.RefundStatus,
			&rf.Reason,
			&rf.FailureReason,
			&rf.ProcessorRefundID,
			&rf.ProcessorChargeID,
			&rf.ProcessorBalanceTxnID,
			&rf.ReceiptNumber,
			&rf.SucceededAt,
			&metadataJSON,
			&rf.TenantID,
			&rf.Status,
			&rf.CreatedAt,
			&rf.UpdatedAt,
			&rf.CreatedBy,
			&rf.UpdatedBy,
		)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan refund").
				Mark(ierr.ErrDatabase)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &rf.Metadata); err != nil {
				return nil, ierr.WithError(err).
					WithHint("Failed to parse refund metadata").
					Mark(ierr.ErrDatabase)
			}
		}

		refunds = append(refunds, &rf)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list refunds").
			Mark(ierr.ErrDatabase)
	}

	return refunds, nil
}
