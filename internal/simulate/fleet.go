// Package simulate generates synthetic heartbeat traffic: a month of history
// for a fixed fleet with known failure patterns, and a live publisher that
// occasionally misses a beat.
package simulate

import (
	"context"
	"fmt"

	"uptimeboard/internal/core/domain"
)

// Profile describes how a simulated device behaves over time.
type Profile string

const (
	Healthy      Profile = "healthy"
	Intermittent Profile = "intermittent"
	Problematic  Profile = "problematic"
	FailsMidway  Profile = "fails_midway"
	New          Profile = "new"
)

// Device is one simulated sender. Reliability is the probability in [0,1]
// that a given tick produces a heartbeat.
type Device struct {
	ID          string
	Profile     Profile
	Reliability float64
}

// Publisher is any sink for generated heartbeats.
type Publisher interface {
	Publish(ctx context.Context, hb domain.Heartbeat) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, hb domain.Heartbeat) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, hb domain.Heartbeat) error {
	return f(ctx, hb)
}

// DefaultFleet is twelve devices: eight healthy, one at 85%, one at 60%, one
// that stops reporting after two weeks and one that only appears in the
// last week.
func DefaultFleet() []Device {
	fleet := make([]Device, 0, 12)
	for i := 1; i <= 8; i++ {
		fleet = append(fleet, Device{ID: deviceID(i), Profile: Healthy, Reliability: 1.0})
	}
	return append(fleet,
		Device{ID: deviceID(9), Profile: Intermittent, Reliability: 0.85},
		Device{ID: deviceID(10), Profile: Problematic, Reliability: 0.60},
		Device{ID: deviceID(11), Profile: FailsMidway, Reliability: 1.0},
		Device{ID: deviceID(12), Profile: New, Reliability: 1.0},
	)
}

func deviceID(i int) string {
	return fmt.Sprintf("device_%03d", i)
}
