package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/settledhq/settled/internal/domain/events"
	"github.com/settledhq/settled/internal/domain/pledge"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/service"
	"github.com/settledhq/settled/internal/testutil"
	"github.com/settledhq/settled/internal/types"
)

type RegistrySuite struct {
	testutil.BaseServiceTestSuite
	registry *Registry
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.registry = NewRegistry(service.ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Sentry:           s.GetSentry(),
		OrderRepo:        s.GetStores().OrderRepo,
		RefundRepo:       s.GetStores().RefundRepo,
		PaymentRepo:      s.GetStores().PaymentRepo,
		PledgeRepo:       s.GetStores().PledgeRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		TransactionRepo:  s.GetStores().TransactionRepo,
		EventRepo:        s.GetStores().EventRepo,
		Gateway:          s.GetGateway(),
	})
}

func (s *RegistrySuite) newEvent(eventType types.ExternalEventType, payload string) *events.ExternalEvent {
	return &events.ExternalEvent{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXTERNAL_EVENT),
		ProcessorEventID: "evt_registry_test",
		EventType:        eventType,
		Payload:          json.RawMessage(payload),
		EventStatus:      types.ExternalEventStatusPending,
		BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
	}
}

func (s *RegistrySuite) TestEveryDeclaredTypeHasAHandler() {
	s.NoError(s.registry.Validate())

	for _, eventType := range types.ExternalEventTypes() {
		handler, err := s.registry.Handler(eventType)
		s.NoError(err)
		s.NotNil(handler)
	}
}

func (s *RegistrySuite) TestUnknownTypeIsRejected() {
	_, err := s.registry.Handler(types.ExternalEventType("charge.disputed"))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *RegistrySuite) TestChargeSucceededCreatesPaymentForPledge() {
	p := &pledge.Pledge{
		ID:                       "pledge_registry_test",
		ProcessorPaymentIntentID: "pi_registry_test",
		Amount:                   4200,
		Currency:                 "eur",
		State:                    pledge.PledgeStatePending,
		BaseModel:                types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PledgeRepo.Create(s.GetContext(), p))

	handler, err := s.registry.Handler(types.ExternalEventChargeSucceeded)
	s.NoError(err)

	event := s.newEvent(types.ExternalEventChargeSucceeded,
		`{"id":"ch_registry_test","amount":4200,"currency":"eur","payment_intent":{"id":"pi_registry_test"}}`)
	s.NoError(handler(s.GetContext(), event))

	pay, err := s.GetStores().PaymentRepo.GetByProcessorChargeID(s.GetContext(), "ch_registry_test")
	s.NoError(err)
	s.Equal(p.ID, *pay.PledgeID)
	s.Equal(int64(4200), pay.Amount)
}

func (s *RegistrySuite) TestRefundCreatedForUnknownChargeIsRetryable() {
	handler, err := s.registry.Handler(types.ExternalEventRefundCreated)
	s.NoError(err)

	event := s.newEvent(types.ExternalEventRefundCreated,
		`{"id":"re_registry_test","amount":500,"currency":"eur","status":"succeeded","charge":{"id":"ch_never_seen"}}`)
	err = handler(s.GetContext(), event)
	s.Error(err)
	s.True(ierr.IsDependencyMissing(err))
}

func (s *RegistrySuite) TestMalformedPayloadIsTerminal() {
	handler, err := s.registry.Handler(types.ExternalEventChargeRefunded)
	s.NoError(err)

	event := s.newEvent(types.ExternalEventChargeRefunded, `{not json`)
	err = handler(s.GetContext(), event)
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.False(Retryable(err))
}
