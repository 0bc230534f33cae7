package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"uptimeboard/internal/core/domain"
)

// Defaults for the history generator.
const (
	DefaultDays      = 30
	DefaultInterval  = 10 * time.Second
	DefaultFailAfter = 14 * 24 * time.Hour
	DefaultNewFor    = 7 * 24 * time.Hour
)

// History emits one tick per Interval from End-Days to End inclusive for
// every device in Fleet.
type History struct {
	Fleet    []Device
	Days     int
	Interval time.Duration

	// FailAfter is measured from the start of the range.
	FailAfter time.Duration
	// NewFor is measured back from the end of the range.
	NewFor time.Duration

	Rand *rand.Rand
}

// NewHistory returns a generator over DefaultFleet seeded with seed.
func NewHistory(days int, interval time.Duration, seed int64) *History {
	if days <= 0 {
		days = DefaultDays
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &History{
		Fleet:     DefaultFleet(),
		Days:      days,
		Interval:  interval,
		FailAfter: DefaultFailAfter,
		NewFor:    DefaultNewFor,
		Rand:      rand.New(rand.NewSource(seed)),
	}
}

// Generate publishes the history ending at end, which is first truncated to
// the interval so every timestamp falls on a tick. It returns the number of
// heartbeats published.
func (h *History) Generate(ctx context.Context, end time.Time, pub Publisher) (int, error) {
	end = end.UTC().Truncate(h.Interval)
	start := end.Add(-time.Duration(h.Days) * 24 * time.Hour)
	failAt := start.Add(h.FailAfter)
	appearAt := end.Add(-h.NewFor)

	n := 0
	for now := start; !now.After(end); now = now.Add(h.Interval) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for _, d := range h.Fleet {
			if d.Profile == New && now.Before(appearAt) {
				continue
			}
			if d.Profile == FailsMidway && !now.Before(failAt) {
				continue
			}
			if h.Rand.Float64() > d.Reliability {
				continue
			}
			hb := domain.Heartbeat{DeviceID: d.ID, Timestamp: now}
			if err := pub.Publish(ctx, hb); err != nil {
				return n, fmt.Errorf("publish %s at %s: %w", d.ID, now.Format(time.RFC3339), err)
			}
			n++
		}
	}
	return n, nil
}
