package errors

import "errors"

var (
	// ErrDeviceNotFound is returned when a lookup targets an id that never sent a heartbeat.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceMismatch is returned when a heartbeat is appended to a device with a different id.
	ErrDeviceMismatch = errors.New("heartbeat device_id does not match device")

	// ErrInvalidParameter covers non-positive intervals/windows and incomplete heartbeats.
	ErrInvalidParameter = errors.New("invalid parameter")
)
