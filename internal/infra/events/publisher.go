// Package events publishes committed ledger and loan events to a redis list
// for downstream consumers (statements, notifications, reconciliation).
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/resilience"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/events")

// DefaultQueue is the redis list key events are pushed to.
const DefaultQueue = "bank:events"

// RedisPublisher appends events to a redis list with RPUSH, so consumers can
// read them in commit order with BLPOP.
type RedisPublisher struct {
	client *redis.Client
	queue  string
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
}

// NewRedisPublisher creates a publisher. An empty queue uses DefaultQueue.
func NewRedisPublisher(client *redis.Client, queue string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{client: client, queue: queue, cb: cb, cfg: cfg}
}

// Publish pushes one event.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	ctx, span := tracer.Start(ctx, "Redis.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.kind", string(event.Kind)),
		attribute.String("event.id", event.ID),
	)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return resilience.Guard(ctx, p.cb, p.cfg, func() error {
		if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
			return fmt.Errorf("rpush %s: %w", p.queue, err)
		}
		return nil
	})
}

// QueueLength returns the number of events waiting in the queue.
func (p *RedisPublisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queue).Result()
}

// Connect parses a redis URL and verifies the server answers PING.
func Connect(ctx context.Context, url string, cfg resilience.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, domain.Event) error { return nil }
