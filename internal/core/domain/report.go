package domain

import "time"

// Status bands used by the dashboard table.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// Thresholds mapping an uptime percentage to a status band.
const (
	ThresholdOK       = 90
	ThresholdDegraded = 50
)

// ReportRow is one line of the uptime table. Rows are built fresh for every
// snapshot and never mutated afterwards.
type ReportRow struct {
	DeviceID      string
	LastSeen      time.Time
	UptimePercent int
}

// Status maps the uptime percentage to a colour band.
func (r ReportRow) Status() string {
	switch {
	case r.UptimePercent >= ThresholdOK:
		return StatusOK
	case r.UptimePercent >= ThresholdDegraded:
		return StatusDegraded
	default:
		return StatusDown
	}
}
