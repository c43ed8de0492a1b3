package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/settledhq/settled/internal/domain/events"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
	"github.com/settledhq/settled/internal/postgres"
	"github.com/settledhq/settled/internal/types"
)

type externalEventRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewExternalEventRepository(db postgres.IClient, logger *logger.Logger) events.Repository {
	return &externalEventRepository{db: db, logger: logger}
}

const externalEventColumns = `
	id, processor_event_id, event_type, payload, event_status, handled_at,
	failure_error, processor_created_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

// Claim inserts the event row, yielding to any earlier delivery. The
// unique constraint on processor_event_id plus ON CONFLICT DO NOTHING
// makes this safe under concurrent duplicate deliveries.
func (r *externalEventRepository) Claim(ctx context.Context, e *events.ExternalEvent) (bool, error) {
	query := `
	INSERT INTO external_events (` + externalEventColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	ON CONFLICT (processor_event_id) DO NOTHING
	`

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query,
		e.ID,
		e.ProcessorEventID,
		e.EventType,
		[]byte(e.Payload),
		e.EventStatus,
		e.HandledAt,
		e.FailureError,
		e.ProcessorCreatedAt,
		e.TenantID,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
		e.CreatedBy,
		e.UpdatedBy,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to claim external event").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}

	return rows == 1, nil
}

func (r *externalEventRepository) Get(ctx context.Context, id string) (*events.ExternalEvent, error) {
	query := `SELECT ` + externalEventColumns + ` FROM external_events WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *externalEventRepository) GetByProcessorEventID(ctx context.Context, processorEventID string) (*events.ExternalEvent, error) {
	query := `SELECT ` + externalEventColumns + ` FROM external_events WHERE processor_event_id = $1`
	return r.getOne(ctx, query, processorEventID)
}

func (r *externalEventRepository) getOne(ctx context.Context, query string, arg any) (*events.ExternalEvent, error) {
	q := r.db.GetQuerier(ctx)

	var e events.ExternalEvent
	var payload []byte

	err := q.QueryRowContext(ctx, query, arg).Scan(
		&e.ID,
		&e.ProcessorEventID,
		&e.EventType,
		&payload,
		&e.EventStatus,
		&e.HandledAt,
		&e.FailureError,
		&e.ProcessorCreatedAt,
		&e.TenantID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.CreatedBy,
		&e.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("external event not found").
				WithHint("The requested event does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get external event").
			Mark(ierr.ErrDatabase)
	}

	e.Payload = payload
	return &e, nil
}

func (r *externalEventRepository) MarkHandled(ctx context.Context, processorEventID string) error {
	query := `
	UPDATE external_events SET
		event_status = $2,
		handled_at = $3,
		failure_error = NULL,
		updated_at = $3
	WHERE processor_event_id = $1
	`

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query, processorEventID, types.ExternalEventStatusHandled, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark event handled").
			Mark(ierr.ErrDatabase)
	}

	return r.requireRow(result)
}

func (r *externalEventRepository) MarkFailed(ctx context.Context, processorEventID string, failure string) error {
	query := `
	UPDATE external_events SET
		event_status = $2,
		failure_error = $3,
		updated_at = $4
	WHERE processor_event_id = $1
	`

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query, processorEventID, types.ExternalEventStatusFailed, failure, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark event failed").
			Mark(ierr.ErrDatabase)
	}

	return r.requireRow(result)
}

func (r *externalEventRepository) requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("external event not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
