package memory

import (
	"sort"
	"sync"
	"time"
	"uptimeboard/internal/core/domain"
	coreerrors "uptimeboard/internal/core/errors"
)

// DeviceRepository is the in-memory device registry. One lock covers the map
// and every device in it, so a reader never sees a half-applied append.
type DeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]*domain.Device
}

// NewDeviceRepository creates an empty in-memory DeviceRepository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		devices: make(map[string]*domain.Device),
	}
}

// Count is the number of registered devices.
func (r *DeviceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// WithDevice finds (or creates) a device by id and executes fn while holding
// the write lock. Creation and mutation are atomic with respect to every
// other repository call, so concurrent first sightings of an id yield one Device.
// A device created for this call is registered only if fn succeeds.
func (r *DeviceRepository) WithDevice(id string, fn func(d *domain.Device) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		return fn(d)
	}

	d := domain.NewDevice(id)
	if err := fn(d); err != nil {
		return err
	}
	r.devices[id] = d
	return nil
}

// GetSnapshot returns a detached copy of the device.
func (r *DeviceRepository) GetSnapshot(id string) (*domain.DeviceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, coreerrors.ErrDeviceNotFound
	}
	snap := d.Snapshot()
	return &snap, nil
}

// IDs returns every known device id, sorted.
func (r *DeviceRepository) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EvictBefore trims every device's history to heartbeats at or after cutoff.
func (r *DeviceRepository) EvictBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, d := range r.devices {
		n += d.EvictBefore(cutoff)
	}
	return n
}
