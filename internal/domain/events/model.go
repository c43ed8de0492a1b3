package events

import (
	"encoding/json"
	"time"

	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

// ExternalEvent records a processor webhook event we have taken
// ownership of. The processor event id is unique: claiming it is the
// idempotency primitive for the whole reconciliation pipeline.
type ExternalEvent struct {
	// Unique identifier for this event record
	ID string `json:"id" db:"id"`
	// The processor_event_id is the event identifier at the payment processor
	ProcessorEventID string `json:"processor_event_id" db:"processor_event_id"`
	// The event_type tells which handler the worker dispatches to
	EventType types.ExternalEventType `json:"event_type" db:"event_type"`
	// Raw event payload as received, for handler consumption and replay
	Payload json.RawMessage `json:"payload" db:"payload"`
	// The event_status tracks handling (pending, handled, failed)
	EventStatus types.ExternalEventStatus `json:"event_status" db:"event_status"`
	// The handled_at timestamp shows when handling completed (optional)
	HandledAt *time.Time `json:"handled_at,omitempty" db:"handled_at"`
	// The failure_error field holds the terminal handler error (optional)
	FailureError *string `json:"failure_error,omitempty" db:"failure_error"`
	// When the processor created the event, for lag monitoring
	ProcessorCreatedAt time.Time `json:"processor_created_at" db:"processor_created_at"`

	types.BaseModel
}

// Handled reports whether the event has already been fully processed
func (e *ExternalEvent) Handled() bool {
	return e.EventStatus == types.ExternalEventStatusHandled
}

// Validate validates the external event
func (e *ExternalEvent) Validate() error {
	if e.ProcessorEventID == "" {
		return ierr.NewError("invalid processor event id").
			WithHint("Processor event id is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := e.EventType.Validate(); err != nil {
		return ierr.NewError("unsupported event type").
			WithHintf("Event type %s is not handled", e.EventType).
			Mark(ierr.ErrValidation)
	}
	if len(e.Payload) == 0 {
		return ierr.NewError("empty event payload").
			WithHint("Event payload must not be empty").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the external event
func (e *ExternalEvent) TableName() string {
	return "external_events"
}
