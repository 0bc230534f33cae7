package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uptimeboard/internal/config"
	"uptimeboard/internal/core/domain"
)

type recordingSubmitter struct {
	got []domain.Heartbeat
	err error
}

func (r *recordingSubmitter) Submit(_ context.Context, hb domain.Heartbeat) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, hb)
	return nil
}

func (r *recordingSubmitter) TrySubmit(hb domain.Heartbeat) error {
	return r.Submit(context.Background(), hb)
}

var testCfg = config.RedisConfig{Stream: "heartbeats", Group: "uptimeboard", Consumer: "test"}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Consumer, *recordingSubmitter) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rec := &recordingSubmitter{}
	c := NewConsumer(client, testCfg, rec, zap.NewNop())
	c.block = 10 * time.Millisecond
	return mr, client, c, rec
}

func TestConsumer_ReadsPublishedHeartbeats(t *testing.T) {
	_, client, c, rec := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))

	pub := NewPublisher(client, testCfg.Stream)
	ts := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, domain.Heartbeat{DeviceID: "device_001", Timestamp: ts}))
	require.NoError(t, pub.Publish(ctx, domain.Heartbeat{DeviceID: "device_002", Timestamp: ts.Add(10 * time.Second)}))

	n, err := c.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.got, 2)
	assert.Equal(t, "device_001", rec.got[0].DeviceID)
	assert.True(t, ts.Equal(rec.got[0].Timestamp))

	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_FlatFieldsAndBadEntries(t *testing.T) {
	_, client, c, rec := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testCfg.Stream,
		Values: map[string]interface{}{"device_id": "device_003", "timestamp": "1735725600"},
	}).Err())
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testCfg.Stream,
		Values: map[string]interface{}{"timestamp": "1735725600"},
	}).Err())

	n, err := c.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "device_003", rec.got[0].DeviceID)

	// the undecodable entry is acknowledged too
	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_LeavesEntryPendingWhenQueueRefuses(t *testing.T) {
	_, client, c, rec := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, testCfg.Stream).Publish(ctx, domain.Heartbeat{DeviceID: "d", Timestamp: time.Unix(1735725600, 0)}))

	rec.err = context.Canceled
	_, err := c.ReadBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestConsumer_RetriesRefusedEntriesBeforeNewOnes(t *testing.T) {
	_, client, c, rec := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))
	pub := NewPublisher(client, testCfg.Stream)
	require.NoError(t, pub.Publish(ctx, domain.Heartbeat{DeviceID: "d1", Timestamp: time.Unix(1735725600, 0)}))
	require.NoError(t, pub.Publish(ctx, domain.Heartbeat{DeviceID: "d2", Timestamp: time.Unix(1735725610, 0)}))

	rec.err = context.Canceled
	n, err := c.ReadBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)

	// queue has room again; both delivered entries come back
	rec.err = nil
	require.NoError(t, pub.Publish(ctx, domain.Heartbeat{DeviceID: "d3", Timestamp: time.Unix(1735725620, 0)}))

	n, err = c.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.got, 2)
	assert.Equal(t, "d1", rec.got[0].DeviceID)
	assert.Equal(t, "d2", rec.got[1].DeviceID)

	n, err = c.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.got, 3)
	assert.Equal(t, "d3", rec.got[2].DeviceID)

	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_RestartDrainsOwnPendingEntries(t *testing.T) {
	_, client, c, rec := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, testCfg.Stream).Publish(ctx, domain.Heartbeat{DeviceID: "d", Timestamp: time.Unix(1735725600, 0)}))

	rec.err = context.Canceled
	_, err := c.ReadBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// same consumer name, fresh process
	again := &recordingSubmitter{}
	restarted := NewConsumer(client, testCfg, again, zap.NewNop())
	restarted.block = 10 * time.Millisecond

	n, err := restarted.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, again.got, 1)
	assert.Equal(t, "d", again.got[0].DeviceID)

	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_ClaimsEntriesOfIdleConsumer(t *testing.T) {
	mr, client, dead, rec := setupTestRedis(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	require.NoError(t, dead.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, testCfg.Stream).Publish(ctx, domain.Heartbeat{DeviceID: "d", Timestamp: start}))

	rec.err = context.Canceled
	_, err := dead.ReadBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)

	cfg := testCfg
	cfg.Consumer = "survivor"
	got := &recordingSubmitter{}
	survivor := NewConsumer(client, cfg, got, zap.NewNop())
	survivor.block = 10 * time.Millisecond

	// not idle long enough yet
	n, err := survivor.ClaimStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	mr.SetTime(start.Add(2 * defaultClaimIdle))
	n, err = survivor.ClaimStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = survivor.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got.got, 1)
	assert.Equal(t, "d", got.got[0].DeviceID)

	pending, err := client.XPending(ctx, testCfg.Stream, testCfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_EnsureGroupIsIdempotent(t *testing.T) {
	_, _, c, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))
	require.NoError(t, c.EnsureGroup(ctx))
}

func TestConsumer_EmptyStream(t *testing.T) {
	_, _, c, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))

	n, err := c.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDecode_DataField(t *testing.T) {
	hb, err := Decode(map[string]interface{}{
		"data":      `{"device_id":"device_009","timestamp":"2025-01-01T10:00:00Z"}`,
		"timestamp": "1735725601",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "device_009", hb.DeviceID)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), hb.Timestamp)
}
