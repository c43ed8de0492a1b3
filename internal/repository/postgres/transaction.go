package postgres

import (
	"context"
	"database/sql"

	"github.com/settledhq/settled/internal/domain/transaction"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type transactionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewTransactionRepository(db postgres.IClient, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{db: db, logger: logger}
}

const transactionColumns = `
	id, transaction_type, amount, tax_amount, currency, order_id, pledge_id,
	payment_id, refund_id, processor_id, processor_balance_txn_id,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *transactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
	INSERT INTO transactions (` + transactionColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
	)
	`

	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, query,
		t.ID,
		t.TransactionType,
		t.Amount,
		t.TaxAmount,
		t.Currency,
		t.OrderID,
		t.PledgeID,
		t.PaymentID,
		t.RefundID,
		t.ProcessorID,
		t.ProcessorBalanceTxnID,
		t.TenantID,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
		t.CreatedBy,
		t.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *transactionRepository) GetByRefundID(ctx context.Context, refundID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE refund_id = $1`
	return r.getOne(ctx, query, refundID)
}

func (r *transactionRepository) getOne(ctx context.Context, query string, arg any) (*transaction.Transaction, error) {
	q := r.db.GetQuerier(ctx)

	var t transaction.Transaction
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&t.ID,
		&t.TransactionType,
		&t.Amount,
		&t.TaxAmount,
		&t.Currency,
		&t.OrderID,
		&t.PledgeID,
		&t.PaymentID,
		&t.RefundID,
		&t.ProcessorID,
		&t.ProcessorBalanceTxnID,
		&t.TenantID,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CreatedBy,
		&t.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("transaction not found").
				WithHint("The requested transaction does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction").
			Mark(ierr.ErrDatabase)
	}

	return &t, nil
}

func (r *transactionRepository) ListByOrderID(ctx context.Context, orderID string) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1 ORDER BY created_at ASC`

	q := r.db.GetQuerier(ctx)
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		err := rows.Scan(
			&t.ID,
			&t.TransactionType,
			&t.Amount,
			&t.TaxAmount,
			&t.Currency,
			&t.OrderID,
			&t.PledgeID,
			&t.PaymentID,
			&t.RefundID,
			&t.ProcessorID,
			&t.ProcessorBalanceTxnID,
			&t.TenantID,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.CreatedBy,
			&t.UpdatedBy,
		)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan transaction").
				Mark(ierr.ErrDatabase)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}

	return transactions, nil
}
