package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/settledhq/settled/internal/domain/order"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
)

type orderRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewOrderRepository(db postgres.IClient, logger *logger.Logger) order.Repository {
	return &orderRepository{db: db, logger: logger}
}

const orderColumns = `
	id, order_number, amount, tax_amount, refunded_amount, refunded_tax_amount,
	currency, order_status, billing_reason, customer_id, subscription_id,
	processor_invoice_id, processor_charge_id, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
	INSERT INTO orders (` + orderColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20
	)
	`

	metadataJSON, err := json.Marshal(o.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize order metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, query,
		o.ID,
		o.OrderNumber,
		o.Amount,
		o.TaxAmount,
		o.RefundedAmount,
		o.RefundedTaxAmount,
		o.Currency,
		o.OrderStatus,
		o.BillingReason,
		o.CustomerID,
		o.SubscriptionID,
		o.ProcessorInvoiceID,
		o.ProcessorChargeID,
		metadataJSON,
		o.TenantID,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
		o.CreatedBy,
		o.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create order").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	// Row lock serializes concurrent refunds on the same order.
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *orderRepository) GetByProcessorInvoiceID(ctx context.Context, invoiceID string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE processor_invoice_id = $1`
	return r.getOne(ctx, query, invoiceID)
}

func (r *orderRepository) GetByProcessorChargeID(ctx context.Context, chargeID string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE processor_charge_id = $1`
	return r.getOne(ctx, query, chargeID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*order.Order, error) {
	q := r.db.GetQuerier(ctx)

	var o order.Order
	var metadataJSON []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.Amount,
		&o.TaxAmount,
		&o.RefundedAmount,
		&o.RefundedTaxAmount,
		&o.Currency,
		&o.OrderStatus,
		&o.BillingReason,
		&o.CustomerID,
		&o.SubscriptionID,
		&o.ProcessorInvoiceID,
		&o.ProcessorChargeID,
		&metadataJSON,
		&o.TenantID,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CreatedBy,
		&o.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("order not found").
				WithHint("The requested order does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get order").
			Mark(ierr.ErrDatabase)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &o.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse order metadata").
				Mark(ierr.ErrDatabase)
		}
	}

	return &o, nil
}

func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	query := `
	UPDATE orders SET
		order_number = $2,
		amount = $3,
		tax_amount = $4,
		refunded_amount = $5,
		refunded_tax_amount = $6,
		currency = $7,
		order_status = $8,
		billing_reason = $9,
		customer_id = $10,
		subscription_id = $11,
		processor_invoice_id = $12,
		processor_charge_id = $13,
		metadata = $14,
		status = $15,
		updated_at = $16,
		updated_by = $17
	WHERE id = $1
	`

	metadataJSON, err := json.Marshal(o.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize order metadata").
			Mark(ierr.ErrDatabase)
	}

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		o.ID,
		o.OrderNumber,
		o.Amount,
		o.TaxAmount,
		o.RefundedAmount,
		o.RefundedTaxAmount,
		o.Currency,
		o.OrderStatus,
		o.BillingReason,
		o.CustomerID,
		o.SubscriptionID,
		o.ProcessorInvoiceID,
		o.ProcessorChargeID,
		metadataJSON,
		o.Status,
		o.UpdatedAt,
		o.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order").
			Mark(ierr.ErrDatabase)
	}

	return r.requireRow(result, "order not found")
}

func (r *orderRepository) UpdateRefunds(ctx context.Context, o *order.Order) error {
	// Defensive re-check at the storage layer: the WHERE clause refuses
	// updates that would exceed the order's amounts even if the model
	// check was bypassed.
	query := `
	UPDATE orders SET
		refunded_amount = $2,
		refunded_tax_amount = $3,
		order_status = $4,
		updated_at = $5,
		updated_by = $6
	WHERE id = $1 AND $2 <= amount AND $3 <= tax_amount
	`

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		o.ID,
		o.RefundedAmount,
		o.RefundedTaxAmount,
		o.OrderStatus,
		o.UpdatedAt,
		o.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order refund accounting").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order refund accounting").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("order refund accounting update rejected").
			WithReportableDetails(map[string]any{
				"order_id":            o.ID,
				"refunded_amount":     o.RefundedAmount,
				"refunded_tax_amount": o.RefundedTaxAmount,
			}).
			Mark(ierr.ErrInvariantViolation)
	}

	return nil
}

func (r *orderRepository) ListByCustomerID(ctx context.Context, customerID string) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	q := r.db.GetQuerier(ctx)
	rows, err := q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var o order.Order
		var metadataJSON []byte

		err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.Amount,
			&o.TaxAmount,
			&o.RefundedAmount,
			&o.RefundedTaxAmount,
			&o.Currency,
			&o.OrderStatus,
			&o.BillingReason,
			&o.CustomerID,
			&o.SubscriptionID,
			&o.ProcessorInvoiceID,
			&o.ProcessorChargeID,
			&metadataJSON,
			&o.TenantID,
			&o.Status,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.CreatedBy,
			&o.UpdatedBy,
		)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan order").
				Mark(ierr.ErrDatabase)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &o.Metadata); err != nil {
				return nil, ierr.WithError(err).
					WithHint("Failed to parse order metadata").
					Mark(ierr.ErrDatabase)
			}
		}

		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}

	return orders, nil
}

func (r *orderRepository) requireRow(result sql.Result, msg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError(msg).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
