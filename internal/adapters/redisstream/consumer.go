// Package redisstream reads heartbeats from a Redis stream through a consumer
// group and writes simulated heartbeats to it.
package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"uptimeboard/internal/adapters/payload"
	"uptimeboard/internal/config"
	"uptimeboard/internal/core/domain"
	"uptimeboard/internal/ingest"
)

const (
	defaultBatch = 100
	defaultBlock = 5 * time.Second
	retryDelay   = time.Second

	// entries another consumer has held this long are taken over
	defaultClaimIdle = time.Minute
	claimCheckEvery  = 30 * time.Second
)

// NewClient opens a client for cfg and pings it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Consumer moves stream entries into an ingest queue and acknowledges them.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	submit   ingest.Submitter
	logger   *zap.Logger

	batch     int64
	block     time.Duration
	claimIdle time.Duration
	now       func() time.Time

	// backlog is set while this consumer's pending entries list may hold
	// entries it has not yet submitted. Those are read again from ID 0
	// before any new entry.
	backlog bool
}

// NewConsumer builds a consumer. An empty consumer name gets a random one.
func NewConsumer(client *redis.Client, cfg config.RedisConfig, submit ingest.Submitter, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Consumer
	if name == "" {
		name = "uptimeboard-" + uuid.NewString()
	}
	return &Consumer{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: name,
		submit:   submit,
		logger:   logger,
		batch:     defaultBatch,
		block:     defaultBlock,
		claimIdle: defaultClaimIdle,
		now:       time.Now,
		backlog:   true,
	}
}

// EnsureGroup creates the stream and group when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis: create group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

// Run reads batches until ctx is cancelled. Read errors are logged and
// retried after a short pause.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("redis: consuming stream",
		zap.String("stream", c.stream), zap.String("group", c.group), zap.String("consumer", c.consumer))

	var lastClaim time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}
		if now := c.now(); now.Sub(lastClaim) >= claimCheckEvery {
			lastClaim = now
			if n, err := c.ClaimStale(ctx); err != nil {
				c.logger.Warn("redis: claim stale entries failed", zap.Error(err))
			} else if n > 0 {
				c.logger.Info("redis: claimed stale entries", zap.Int("count", n))
			}
		}
		if _, err := c.ReadBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("redis: read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
		}
	}
}

// ReadBatch queues one batch and returns how many entries were queued.
// Entries left pending by an earlier refusal, or claimed from another
// consumer, are retried before new entries are read. Entries that cannot be
// decoded are acknowledged and skipped.
func (c *Consumer) ReadBatch(ctx context.Context) (int, error) {
	if c.backlog {
		queued, seen, err := c.read(ctx, "0", -1)
		if err != nil || seen > 0 {
			return queued, err
		}
		c.backlog = false
	}
	queued, _, err := c.read(ctx, ">", c.block)
	return queued, err
}

// ClaimStale moves entries idle for longer than the claim threshold from
// other consumers of the group to this one. They are submitted by the next
// ReadBatch.
func (c *Consumer) ClaimStale(ctx context.Context) (int, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   c.claimIdle,
		Start:  "-",
		End:    "+",
		Count:  c.batch,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: xpending %s: %w", c.stream, err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Consumer != c.consumer {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: xclaim %s: %w", c.stream, err)
	}
	if len(claimed) > 0 {
		c.backlog = true
	}
	return len(claimed), nil
}

// read runs one XREADGROUP from id and submits what it returns. seen counts
// every entry returned, queued only those submitted.
func (c *Consumer) read(ctx context.Context, id string, block time.Duration) (queued, seen int, err error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, id},
		Count:    c.batch,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			seen++
			hb, err := Decode(msg.Values, c.now())
			if err != nil {
				c.logger.Warn("redis: dropping entry", zap.String("id", msg.ID), zap.Error(err))
				c.ack(ctx, msg.ID)
				continue
			}
			if err := c.submit.Submit(ctx, hb); err != nil {
				// stays in this consumer's pending list
				c.backlog = true
				return queued, seen, err
			}
			c.ack(ctx, msg.ID)
			queued++
		}
	}
	return queued, seen, nil
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Warn("redis: ack failed", zap.String("id", id), zap.Error(err))
	}
}

// Decode accepts either a JSON message in the "data" field or flat
// device_id/timestamp fields.
func Decode(values map[string]interface{}, received time.Time) (domain.Heartbeat, error) {
	if data, ok := values["data"]; ok {
		return payload.Decode([]byte(fmt.Sprint(data)), "", received)
	}

	flat := map[string]string{}
	if v, ok := values["device_id"]; ok {
		flat["device_id"] = fmt.Sprint(v)
	}
	if v, ok := values["timestamp"]; ok {
		flat["timestamp"] = fmt.Sprint(v)
	}
	body, err := json.Marshal(flat)
	if err != nil {
		return domain.Heartbeat{}, err
	}
	return payload.Decode(body, "", received)
}
