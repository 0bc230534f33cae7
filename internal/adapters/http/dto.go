package http

import "time"

// HeartbeatRequest is the optional body of POST /devices/{device_id}/heartbeat.
// A missing sent_at means "now".
type HeartbeatRequest struct {
	SentAt *time.Time `json:"sent_at"`
}

type ErrorResponse struct {
	Msg string `json:"msg"`
}

// DeviceRow is one line of the uptime table.
type DeviceRow struct {
	DeviceID string    `json:"device_id"`
	LastSeen time.Time `json:"last_seen"`
	Uptime   int       `json:"uptime"`
	Status   string    `json:"status"`
}

type DevicesResponse struct {
	GeneratedAt     time.Time   `json:"generated_at"`
	IntervalSeconds float64     `json:"interval_seconds"`
	WindowSeconds   float64     `json:"window_seconds"`
	Devices         []DeviceRow `json:"devices"`
}

type UptimeResponse struct {
	DeviceID string `json:"device_id"`
	Uptime   int    `json:"uptime"`
	Status   string `json:"status"`
}

type HeartbeatsResponse struct {
	DeviceID   string      `json:"device_id"`
	From       time.Time   `json:"from"`
	To         time.Time   `json:"to"`
	Heartbeats []time.Time `json:"heartbeats"`
}

// ConfigRequest replaces the uptime parameters. Both values are seconds and
// may be fractional.
type ConfigRequest struct {
	IntervalSeconds float64 `json:"interval_seconds" binding:"required"`
	WindowSeconds   float64 `json:"window_seconds" binding:"required"`
}

type ConfigResponse struct {
	IntervalSeconds float64 `json:"interval_seconds"`
	WindowSeconds   float64 `json:"window_seconds"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Devices int    `json:"devices"`
}
