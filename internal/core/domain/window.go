package domain

import (
	"fmt"
	"time"

	coreerrors "uptimeboard/internal/core/errors"
)

// Window is the pair of parameters uptime is evaluated with.
type Window struct {
	// Interval is the heartbeat cadence of a healthy device.
	Interval time.Duration
	// Window is the trailing lookback length.
	Window time.Duration
}

// Validate rejects non-positive values.
func (w Window) Validate() error {
	if w.Interval <= 0 {
		return fmt.Errorf("interval %s must be > 0: %w", w.Interval, coreerrors.ErrInvalidParameter)
	}
	if w.Window <= 0 {
		return fmt.Errorf("window %s must be > 0: %w", w.Window, coreerrors.ErrInvalidParameter)
	}
	return nil
}

// ExpectedCount returns how many heartbeats a healthy device emits within a
// window. A window that is an exact multiple of the interval has a tick on
// both boundaries, hence one extra.
//
//	ExpectedCount(10s, 30s) == 4
//	ExpectedCount(10s, 35s) == 3
func ExpectedCount(interval, window time.Duration) (int, error) {
	if err := (Window{Interval: interval, Window: window}).Validate(); err != nil {
		return 0, err
	}
	complete := int(window / interval)
	if window%interval == 0 {
		complete++
	}
	return complete, nil
}

// ExpectedCountAt is the expected count for a window ending at end. The
// boundary tick is only counted when end itself is aligned, so off-boundary
// queries expect just the interior ticks.
func ExpectedCountAt(interval, window time.Duration, end time.Time) (int, error) {
	n, err := ExpectedCount(interval, window)
	if err != nil {
		return 0, err
	}
	if window%interval == 0 && !IsAligned(end, interval) {
		n--
	}
	return n, nil
}

// IsAligned reports whether end falls exactly on an interval boundary,
// counted from the Unix epoch.
func IsAligned(end time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return end.UnixNano()%interval.Nanoseconds() == 0
}

// Select returns the heartbeats inside [start, end] when end is aligned and
// inside [start, end) otherwise. Only end drives the choice; start is never
// checked for alignment.
func Select(hbs []Heartbeat, start, end time.Time, interval time.Duration) ([]Heartbeat, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval %s must be > 0: %w", interval, coreerrors.ErrInvalidParameter)
	}

	aligned := IsAligned(end, interval)
	var out []Heartbeat
	for _, hb := range hbs {
		if hb.Timestamp.Before(start) {
			continue
		}
		if hb.Timestamp.After(end) {
			continue
		}
		if !aligned && hb.Timestamp.Equal(end) {
			continue
		}
		out = append(out, hb)
	}
	return out, nil
}

// InWindow is plain inclusive range membership, without the alignment rule.
func InWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}

// Percent is floor(actual*100/expected), clamped to 0..100.
func Percent(actual, expected int) int {
	if actual <= 0 || expected <= 0 {
		return 0
	}
	p := actual * 100 / expected
	if p > 100 {
		p = 100
	}
	return p
}
