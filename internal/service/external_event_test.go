package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/events"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type ExternalEventServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ExternalEventService
}

func TestExternalEventService(t *testing.T) {
	suite.Run(t, new(ExternalEventServiceSuite))
}

func (s *ExternalEventServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewExternalEventService(ServiceParams{
		Logger:    s.GetLogger(),
		Config:    s.GetConfig(),
		DB:        s.GetDB(),
		Sentry:    s.GetSentry(),
		EventRepo: s.GetStores().EventRepo,
	})
}

func (s *ExternalEventServiceSuite) newProcessorEvent(id string) *stripeapi.Event {
	return &stripeapi.Event{
		ID:      id,
		Type:    stripeapi.EventType(types.ExternalEventChargeSucceeded),
		Created: time.Now().Unix(),
		Data: &stripeapi.EventData{
			Raw: json.RawMessage(`{"id":"ch_evt_test"}`),
		},
	}
}

func (s *ExternalEventServiceSuite) TestIngestClaimsFirstDeliveryOnly() {
	event, claimed, err := s.service.Ingest(s.GetContext(), s.newProcessorEvent("evt_1"))
	s.NoError(err)
	s.True(claimed)
	s.NotNil(event)
	s.Equal("evt_1", event.ProcessorEventID)
	s.Equal(types.ExternalEventChargeSucceeded, event.EventType)
	s.Equal(types.ExternalEventStatusPending, event.EventStatus)

	// The duplicate delivery is a pure discard
	dup, claimed, err := s.service.Ingest(s.GetContext(), s.newProcessorEvent("evt_1"))
	s.NoError(err)
	s.False(claimed)
	s.Nil(dup)
}

func (s *ExternalEventServiceSuite) TestIngestRejectsEmptyEvent() {
	_, _, err := s.service.Ingest(s.GetContext(), nil)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, _, err = s.service.Ingest(s.GetContext(), &stripeapi.Event{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ExternalEventServiceSuite) TestHandleMarksHandledWithEffects() {
	_, claimed, err := s.service.Ingest(s.GetContext(), s.newProcessorEvent("evt_2"))
	s.NoError(err)
	s.True(claimed)

	calls := 0
	err = s.service.Handle(s.GetContext(), "evt_2", func(ctx context.Context, event *events.ExternalEvent) error {
		calls++
		s.Equal("evt_2", event.ProcessorEventID)
		s.JSONEq(`{"id":"ch_evt_test"}`, string(event.Payload))
		return nil
	})
	s.NoError(err)
	s.Equal(1, calls)

	stored, err := s.service.Get(s.GetContext(), "evt_2")
	s.NoError(err)
	s.Equal(types.ExternalEventStatusHandled, stored.EventStatus)
	s.NotNil(stored.HandledAt)

	// Handled events are skipped without re-running the handler
	err = s.service.Handle(s.GetContext(), "evt_2", func(ctx context.Context, event *events.ExternalEvent) error {
		calls++
		return nil
	})
	s.NoError(err)
	s.Equal(1, calls)
}

func (s *ExternalEventServiceSuite) TestHandleSurfacesHandlerError() {
	_, claimed, err := s.service.Ingest(s.GetContext(), s.newProcessorEvent("evt_3"))
	s.NoError(err)
	s.True(claimed)

	handlerErr := ierr.NewError("order not yet materialized").
		WithHint("Dependency is missing").
		Mark(ierr.ErrDependencyMissing)
	err = s.service.Handle(s.GetContext(), "evt_3", func(ctx context.Context, event *events.ExternalEvent) error {
		return handlerErr
	})
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))

	// Still pending: a retry will pick it up again
	stored, err := s.service.Get(s.GetContext(), "evt_3")
	s.NoError(err)
	s.Equal(types.ExternalEventStatusPending, stored.EventStatus)
}

func (s *ExternalEventServiceSuite) TestMarkFailedRecordsError() {
	_, claimed, err := s.service.Ingest(s.GetContext(), s.newProcessorEvent("evt_4"))
	s.NoError(err)
	s.True(claimed)

	s.NoError(s.service.MarkFailed(s.GetContext(), "evt_4", ierr.NewError("boom").Mark(ierr.ErrValidation)))

	stored, err := s.service.Get(s.GetContext(), "evt_4")
	s.NoError(err)
	s.Equal(types.ExternalEventStatusFailed, stored.EventStatus)
	s.NotNil(stored.FailureError)
}

func (s *ExternalEventServiceSuite) TestHandleUnknownEvent() {
	err := s.service.Handle(s.GetContext(), "evt_never_claimed", func(ctx context.Context, event *events.ExternalEvent) error {
		return nil
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
