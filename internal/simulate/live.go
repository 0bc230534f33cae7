package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"uptimeboard/internal/core/domain"
)

// DefaultSendProbability is the chance a live device reports on a tick.
const DefaultSendProbability = 0.9

// Live publishes heartbeats in real time for a handful of devices.
type Live struct {
	Devices         []string
	Interval        time.Duration
	SendProbability float64
	Rand            *rand.Rand
	Logger          *zap.Logger

	now func() time.Time
}

// NewLive simulates count devices named device_1..device_<count>.
func NewLive(count int, interval time.Duration, seed int64, logger *zap.Logger) *Live {
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("device_%d", i))
	}
	return &Live{
		Devices:         ids,
		Interval:        interval,
		SendProbability: DefaultSendProbability,
		Rand:            rand.New(rand.NewSource(seed)),
		Logger:          logger,
		now:             time.Now,
	}
}

// Run publishes a round immediately and then once per Interval until ctx
// is cancelled or duration elapses. A zero duration runs until cancelled.
func (l *Live) Run(ctx context.Context, duration time.Duration, pub Publisher) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		if err := l.Tick(ctx, pub); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick publishes one round and returns the first publish error.
func (l *Live) Tick(ctx context.Context, pub Publisher) error {
	now := l.now().UTC()
	for _, id := range l.Devices {
		if l.Rand.Float64() >= l.SendProbability {
			l.Logger.Debug("simulate: skipped heartbeat", zap.String("device_id", id))
			continue
		}
		if err := pub.Publish(ctx, domain.Heartbeat{DeviceID: id, Timestamp: now}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("publish %s: %w", id, err)
		}
		l.Logger.Debug("simulate: published heartbeat", zap.String("device_id", id))
	}
	return nil
}
