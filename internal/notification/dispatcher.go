package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/infrastructure/redis"
	"github.com/workorbit/workorbit/internal/observability/metrics"
	"github.com/workorbit/workorbit/internal/reliability/retry"
)

// Dispatcher drains the Redis outbox and fans events out to the hub.
// It runs in a background goroutine for the life of the server; workflow
// correctness never depends on it keeping up.
type Dispatcher struct {
	client      *redis.Client
	queue       string
	hub         *Hub
	logger      *slog.Logger
	pollTimeout time.Duration
	retryCfg    *retry.Config
}

// NewDispatcher creates a new outbox dispatcher
func NewDispatcher(client *redis.Client, queue string, hub *Hub, pollTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}

	return &Dispatcher{
		client:      client,
		queue:       queue,
		hub:         hub,
		logger:      logger,
		pollTimeout: pollTimeout,
		retryCfg:    retry.DefaultConfig(),
	}
}

// Start runs the dispatch loop until ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("notification dispatcher started",
		slog.String("queue", d.queue),
		slog.Duration("poll_timeout", d.pollTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return
		default:
		}

		payload, err := retry.Do(ctx, d.retryCfg, d.logger, "outbox pop", func(ctx context.Context) (string, error) {
			msg, err := d.client.Pop(ctx, d.queue, d.pollTimeout)
			if redis.IsEmpty(err) {
				// Timed out on an empty queue; not a failure.
				return "", nil
			}
			return msg, err
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Error("outbox pop failed", slog.String("error", err.Error()))
			metrics.ObserveDispatch("pop_error")
			time.Sleep(d.pollTimeout)
			continue
		}
		if depth, err := d.client.QueueLength(ctx, d.queue); err == nil {
			metrics.SetOutboxDepth(depth)
		}
		if payload == "" {
			continue
		}

		d.deliver(payload)
	}
}

func (d *Dispatcher) deliver(payload string) {
	var event domain.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		d.logger.Error("discarding malformed event", slog.String("error", err.Error()))
		metrics.ObserveDispatch("malformed")
		return
	}

	d.hub.Broadcast(event, []byte(payload))
	metrics.ObserveDispatch("success")

	d.logger.Debug("event dispatched",
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", event.UserID),
		slog.Int("clients", d.hub.ClientCount()),
	)
}
