package worker

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"

	"github.com/settledhq/settled/internal/config"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/logger"
)

const attemptMetadataKey = "attempt"

// ErrRetriesExhausted marks a dependency that never materialized within
// the retry budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retryable reports whether the error is worth another attempt.
// Dependency-missing errors are delivery races that resolve once the
// out-of-order sibling event lands. Transport errors are transient by
// nature. Everything else is terminal: retrying a validation or
// invariant failure replays the same outcome forever.
func Retryable(err error) bool {
	if ierr.IsDependencyMissing(err) || ierr.IsHTTPClient(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// RetryMiddleware re-runs the handler with exponential backoff while
// the error is classified retryable. Dependency-missing errors are
// additionally bounded by the configured attempt budget; exhausting it
// surfaces ErrRetriesExhausted so the runner records the failure
// instead of dropping the event. The attempt count rides the message
// metadata for observability.
func RetryMiddleware(cfg *config.WorkerConfig, log *logger.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = cfg.InitialInterval
			bo.MaxInterval = cfg.MaxInterval
			bo.Multiplier = cfg.Multiplier
			bo.MaxElapsedTime = 0
			bo.Reset()

			attempt := 1
			for {
				msg.Metadata.Set(attemptMetadataKey, strconv.Itoa(attempt))

				msgs, err := h(msg)
				if err == nil {
					return msgs, nil
				}
				if !Retryable(err) {
					return msgs, err
				}
				if ierr.IsDependencyMissing(err) && attempt >= cfg.MaxRetries {
					return msgs, errors.Join(ErrRetriesExhausted, err)
				}

				delay := bo.NextBackOff()
				log.Warnw("retrying event",
					"message_uuid", msg.UUID,
					"attempt", attempt,
					"max_retries", cfg.MaxRetries,
					"delay", delay,
					"error", err,
				)

				select {
				case <-msg.Context().Done():
					return msgs, msg.Context().Err()
				case <-time.After(delay):
				}
				attempt++
			}
		}
	}
}
