package redisstream

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"uptimeboard/internal/adapters/payload"
	"uptimeboard/internal/core/domain"
)

// Publisher appends heartbeats to a stream as {"data": <json>, "timestamp": <unix>}.
type Publisher struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

// NewPublisher wraps client for stream.
func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream, now: time.Now}
}

// Publish adds one entry.
func (p *Publisher) Publish(ctx context.Context, hb domain.Heartbeat) error {
	body, err := payload.Encode(hb)
	if err != nil {
		return err
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(body),
			"timestamp": p.now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
