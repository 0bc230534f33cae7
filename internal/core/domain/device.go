package domain

import (
	"fmt"
	"time"

	coreerrors "uptimeboard/internal/core/errors"
)

// Device holds the heartbeat history of one device id.
// Device is not safe for concurrent use; the repository serialises access.
type Device struct {
	id         string
	heartbeats []Heartbeat
	lastSeen   time.Time

	// oldest is the smallest retained timestamp, valid when heartbeats is non-empty.
	oldest time.Time
}

// NewDevice creates an empty device.
func NewDevice(id string) *Device {
	return &Device{id: id, lastSeen: Epoch}
}

func (d *Device) ID() string { return d.id }

// AddHeartbeat appends hb and advances the LastSeen watermark.
// A heartbeat for another id is rejected and leaves the device untouched.
func (d *Device) AddHeartbeat(hb Heartbeat) error {
	if hb.DeviceID != d.id {
		return fmt.Errorf("heartbeat device_id %q, device %q: %w", hb.DeviceID, d.id, coreerrors.ErrDeviceMismatch)
	}

	if len(d.heartbeats) == 0 || hb.Timestamp.Before(d.oldest) {
		d.oldest = hb.Timestamp
	}
	d.heartbeats = append(d.heartbeats, hb)
	if hb.Timestamp.After(d.lastSeen) {
		d.lastSeen = hb.Timestamp
	}
	return nil
}

// Heartbeats returns a copy of the history in arrival order.
func (d *Device) Heartbeats() []Heartbeat {
	out := make([]Heartbeat, len(d.heartbeats))
	copy(out, d.heartbeats)
	return out
}

// LastSeen is the maximum timestamp ever appended, or Epoch.
func (d *Device) LastSeen() time.Time { return d.lastSeen }

// Len is the number of retained heartbeats.
func (d *Device) Len() int { return len(d.heartbeats) }

// EvictBefore drops heartbeats strictly older than cutoff and returns how
// many were dropped. LastSeen is a watermark over everything ever appended
// and does not move.
func (d *Device) EvictBefore(cutoff time.Time) int {
	if len(d.heartbeats) == 0 || !d.oldest.Before(cutoff) {
		return 0
	}

	// arrival order is not chronological, so scan the whole slice
	kept := d.heartbeats[:0]
	for _, hb := range d.heartbeats {
		if !hb.Timestamp.Before(cutoff) {
			if len(kept) == 0 || hb.Timestamp.Before(d.oldest) {
				d.oldest = hb.Timestamp
			}
			kept = append(kept, hb)
		}
	}
	n := len(d.heartbeats) - len(kept)
	// clear the tail so evicted values can be collected
	for i := len(kept); i < len(d.heartbeats); i++ {
		d.heartbeats[i] = Heartbeat{}
	}
	d.heartbeats = kept
	return n
}

// DeviceSnapshot is a detached, read-only copy of a device.
type DeviceSnapshot struct {
	ID         string
	LastSeen   time.Time
	Heartbeats []Heartbeat
}

// Snapshot copies the device state.
func (d *Device) Snapshot() DeviceSnapshot {
	return DeviceSnapshot{
		ID:         d.id,
		LastSeen:   d.lastSeen,
		Heartbeats: d.Heartbeats(),
	}
}
