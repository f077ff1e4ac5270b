package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/infrastructure/redis"
	"github.com/workorbit/workorbit/internal/observability/metrics"
	"github.com/workorbit/workorbit/internal/reliability/circuitbreaker"
)

// RedisPublisher pushes events onto a Redis list that the dispatcher
// drains. A circuit breaker fast-fails pushes while Redis is down so the
// approval path never waits on a dead notification channel; callers log
// and swallow the error either way.
type RedisPublisher struct {
	client  *redis.Client
	queue   string
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedisPublisher creates a publisher for the given outbox queue
func NewRedisPublisher(client *redis.Client, queue string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("notification outbox breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &RedisPublisher{
		client:  client,
		queue:   queue,
		breaker: breaker,
		logger:  logger,
	}
}

// Publish enqueues an event for asynchronous dispatch
func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	if !p.breaker.AllowRequest() {
		metrics.ObservePublish("circuit_open")
		return fmt.Errorf("notification outbox circuit open")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.ObservePublish("marshal_error")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Push(ctx, p.queue, payload); err != nil {
		p.breaker.RecordFailure()
		metrics.ObservePublish("error")
		return fmt.Errorf("failed to push event: %w", err)
	}

	p.breaker.RecordSuccess()
	metrics.ObservePublish("success")
	p.logger.Debug("event published",
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", event.UserID),
	)
	return nil
}
