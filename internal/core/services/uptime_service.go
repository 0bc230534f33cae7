package services

import (
	"fmt"
	"sync"
	"time"
	"uptimeboard/internal/core/domain"
	coreerrors "uptimeboard/internal/core/errors"
	"uptimeboard/internal/core/ports"
)

// Defaults used when no configuration is supplied.
const (
	DefaultInterval = 10 * time.Second
	DefaultWindow   = time.Hour
)

// UptimeServiceImpl is the default implementation of UptimeService. It keeps
// no derived state: every percentage is recomputed from the repository.
//
// History is bounded relative to the horizon, the latest instant uptime has
// been evaluated at, never relative to device timestamps. Heartbeats older
// than horizon minus the largest window+interval ever configured are dropped,
// so every evaluation at or after the horizon sees the full window.
type UptimeServiceImpl struct {
	repo ports.DeviceRepository

	mu        sync.RWMutex
	params    domain.Window
	retention time.Duration
	horizon   time.Time
	swept     time.Time
}

// NewUptimeService constructs an UptimeServiceImpl with the default
// 10s interval and 1h window.
func NewUptimeService(repo ports.DeviceRepository) *UptimeServiceImpl {
	s := &UptimeServiceImpl{repo: repo}
	// defaults are valid, error is impossible
	_ = s.Configure(DefaultInterval, DefaultWindow)
	return s
}

// Ingest records a heartbeat under its own device id.
func (s *UptimeServiceImpl) Ingest(hb domain.Heartbeat) error {
	if _, err := domain.NewHeartbeat(hb.DeviceID, hb.Timestamp); err != nil {
		return err
	}
	cutoff := s.cutoff()
	return s.repo.WithDevice(hb.DeviceID, func(d *domain.Device) error {
		if err := d.AddHeartbeat(hb); err != nil {
			return err
		}
		if !cutoff.IsZero() {
			d.EvictBefore(cutoff)
		}
		return nil
	})
}

// Configure replaces the interval and window used by subsequent calls.
// Retention only grows, so narrowing and then widening the window loses
// nothing.
func (s *UptimeServiceImpl) Configure(interval, window time.Duration) error {
	w := domain.Window{Interval: interval, Window: window}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.params = w
	if r := window + interval; r > s.retention {
		s.retention = r
	}
	return nil
}

// Retention is the history kept behind the horizon.
func (s *UptimeServiceImpl) Retention() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retention
}

// DeviceCount is the number of devices ever ingested.
func (s *UptimeServiceImpl) DeviceCount() int {
	return s.repo.Count()
}

// Compact advances the horizon to now and evicts history no evaluation at
// or after it can select. It returns the number of heartbeats dropped.
func (s *UptimeServiceImpl) Compact(now time.Time) int {
	cutoff, ok := s.observe(now, true)
	if !ok {
		return 0
	}
	return s.repo.EvictBefore(cutoff)
}

// Params returns the current interval and window.
func (s *UptimeServiceImpl) Params() domain.Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// UptimePercent returns the integer uptime of a device over the window
// ending at now. Unknown devices and empty windows score 0.
func (s *UptimeServiceImpl) UptimePercent(id string, now time.Time) int {
	s.sweep(now)
	snap, err := s.repo.GetSnapshot(id)
	if err != nil {
		return 0
	}
	return s.percent(snap.Heartbeats, now, s.Params())
}

// Snapshot builds one report row per known device.
func (s *UptimeServiceImpl) Snapshot(now time.Time) []domain.ReportRow {
	s.sweep(now)
	params := s.Params()
	ids := s.repo.IDs()

	rows := make([]domain.ReportRow, 0, len(ids))
	for _, id := range ids {
		snap, err := s.repo.GetSnapshot(id)
		if err != nil {
			continue
		}
		rows = append(rows, domain.ReportRow{
			DeviceID:      id,
			LastSeen:      snap.LastSeen,
			UptimePercent: s.percent(snap.Heartbeats, now, params),
		})
	}
	return rows
}

// DeviceHeartbeats returns the heartbeats of a device within [from, to],
// both ends inclusive, in arrival order.
func (s *UptimeServiceImpl) DeviceHeartbeats(id string, from, to time.Time) ([]domain.Heartbeat, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %v before start %v: %w", to, from, coreerrors.ErrInvalidParameter)
	}
	snap, err := s.repo.GetSnapshot(id)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Heartbeat, 0, len(snap.Heartbeats))
	for _, hb := range snap.Heartbeats {
		if domain.InWindow(hb.Timestamp, from, to) {
			out = append(out, hb)
		}
	}
	return out, nil
}

func (s *UptimeServiceImpl) percent(hbs []domain.Heartbeat, now time.Time, params domain.Window) int {
	start := now.Add(-params.Window)

	actual, err := domain.Select(hbs, start, now, params.Interval)
	if err != nil || len(actual) == 0 {
		return 0
	}

	expected, err := domain.ExpectedCountAt(params.Interval, params.Window, now)
	if err != nil {
		return 0
	}
	return domain.Percent(len(actual), expected)
}

// sweep evicts at most once per interval of horizon progress.
func (s *UptimeServiceImpl) sweep(now time.Time) {
	if cutoff, ok := s.observe(now, false); ok {
		s.repo.EvictBefore(cutoff)
	}
}

// observe moves the horizon forward and reports the eviction cutoff when a
// sweep is due.
func (s *UptimeServiceImpl) observe(now time.Time, force bool) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.horizon) {
		s.horizon = now
	}
	if !force && s.horizon.Sub(s.swept) < s.params.Interval {
		return time.Time{}, false
	}
	s.swept = s.horizon
	return s.horizon.Add(-s.retention), true
}

func (s *UptimeServiceImpl) cutoff() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.horizon.IsZero() {
		return time.Time{}
	}
	return s.horizon.Add(-s.retention)
}
