package ports

import (
	"time"
	"uptimeboard/internal/core/domain"
)

// UptimeService is the main port used by transports and the presentation layer.
type UptimeService interface {
	Ingest(hb domain.Heartbeat) error
	Snapshot(now time.Time) []domain.ReportRow
	Configure(interval, window time.Duration) error
	UptimePercent(id string, now time.Time) int
	DeviceHeartbeats(id string, from, to time.Time) ([]domain.Heartbeat, error)
	Params() domain.Window
	DeviceCount() int
}

// DeviceRepository is the registry port used by the service.
type DeviceRepository interface {
	WithDevice(id string, fn func(d *domain.Device) error) error
	GetSnapshot(id string) (*domain.DeviceSnapshot, error)
	IDs() []string
	Count() int
	// EvictBefore drops every heartbeat older than cutoff from every device.
	EvictBefore(cutoff time.Time) int
}
