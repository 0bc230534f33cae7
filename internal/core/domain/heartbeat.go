package domain

import (
	"fmt"
	"time"

	coreerrors "uptimeboard/internal/core/errors"
)

// Epoch is the LastSeen value of a device that never reported.
var Epoch = time.Unix(0, 0).UTC()

// Heartbeat is a single liveness signal from a device.
type Heartbeat struct {
	DeviceID  string
	Timestamp time.Time
}

// NewHeartbeat builds a heartbeat. Both fields are required; callers that
// want "now" semantics must resolve the time before calling.
func NewHeartbeat(deviceID string, ts time.Time) (Heartbeat, error) {
	if deviceID == "" {
		return Heartbeat{}, fmt.Errorf("heartbeat device_id is empty: %w", coreerrors.ErrInvalidParameter)
	}
	if ts.IsZero() {
		return Heartbeat{}, fmt.Errorf("heartbeat for %q has no timestamp: %w", deviceID, coreerrors.ErrInvalidParameter)
	}
	return Heartbeat{DeviceID: deviceID, Timestamp: ts}, nil
}

// Next returns the heartbeat the same device should emit one interval later.
func (h Heartbeat) Next(interval time.Duration) Heartbeat {
	return Heartbeat{DeviceID: h.DeviceID, Timestamp: h.Timestamp.Add(interval)}
}
