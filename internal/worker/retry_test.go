package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settledhq/settled/internal/config"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
)

func testWorkerConfig() *config.WorkerConfig {
	return &config.WorkerConfig{
		Topic:           "external_events",
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
		AttemptTimeout:  time.Second,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	return log
}

func runWithRetry(t *testing.T, cfg *config.WorkerConfig, h message.HandlerFunc) error {
	wrapped := RetryMiddleware(cfg, testLogger(t))(h)
	msg := message.NewMessage(watermill.NewUUID(), []byte("evt_retry_test"))
	_, err := wrapped(msg)
	return err
}

func TestRetryable(t *testing.T) {
	dependencyErr := ierr.NewError("order missing").Mark(ierr.ErrDependencyMissing)
	transportErr := ierr.NewError("connection reset").Mark(ierr.ErrHTTPClient)
	validationErr := ierr.NewError("bad payload").Mark(ierr.ErrValidation)
	invariantErr := ierr.NewError("over-allocated").Mark(ierr.ErrInvariantViolation)
	notFoundErr := ierr.NewError("gone").Mark(ierr.ErrNotFound)
	permissionErr := ierr.NewError("refunded").Mark(ierr.ErrPermissionDenied)

	assert.True(t, Retryable(dependencyErr))
	assert.True(t, Retryable(transportErr))
	assert.False(t, Retryable(validationErr))
	assert.False(t, Retryable(invariantErr))
	assert.False(t, Retryable(notFoundErr))
	assert.False(t, Retryable(permissionErr))
}

func TestRetryMiddlewareDependencyMissingBounded(t *testing.T) {
	cfg := testWorkerConfig()

	attempts := 0
	err := runWithRetry(t, cfg, func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		return nil, ierr.NewError("subscription missing").Mark(ierr.ErrDependencyMissing)
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.True(t, ierr.IsDependencyMissing(err))
	assert.Equal(t, cfg.MaxRetries, attempts)
}

func TestRetryMiddlewareRecoversWhenDependencyAppears(t *testing.T) {
	cfg := testWorkerConfig()

	attempts := 0
	err := runWithRetry(t, cfg, func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		if attempts < 3 {
			return nil, ierr.NewError("payment missing").Mark(ierr.ErrDependencyMissing)
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddlewareTerminalErrorsRunOnce(t *testing.T) {
	cfg := testWorkerConfig()

	attempts := 0
	err := runWithRetry(t, cfg, func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		return nil, ierr.NewError("over-allocated").Mark(ierr.ErrInvariantViolation)
	})

	require.Error(t, err)
	assert.True(t, ierr.IsInvariantViolation(err))
	assert.Equal(t, 1, attempts)
}

func TestRetryMiddlewareTransportErrorsNotBusinessBounded(t *testing.T) {
	cfg := testWorkerConfig()

	// Transport errors keep retrying past the dependency budget
	attempts := 0
	err := runWithRetry(t, cfg, func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		if attempts <= cfg.MaxRetries+2 {
			return nil, ierr.NewError("processor unreachable").Mark(ierr.ErrHTTPClient)
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, cfg.MaxRetries+3, attempts)
}

func TestRetryMiddlewareTracksAttemptMetadata(t *testing.T) {
	cfg := testWorkerConfig()

	var lastAttempt string
	wrapped := RetryMiddleware(cfg, testLogger(t))(func(msg *message.Message) ([]*message.Message, error) {
		lastAttempt = msg.Metadata.Get(attemptMetadataKey)
		return nil, ierr.NewError("order missing").Mark(ierr.ErrDependencyMissing)
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte("evt_retry_test"))
	_, err := wrapped(msg)
	require.Error(t, err)
	assert.Equal(t, "3", lastAttempt)
}
