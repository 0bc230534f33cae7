package domain

import (
	"errors"
	"testing"
	"time"

	coreerrors "uptimeboard/internal/core/errors"
)

func TestNewHeartbeat_RequiresDeviceID(t *testing.T) {
	_, err := NewHeartbeat("", time.Now())
	if !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for empty id, got %v", err)
	}
}

func TestNewHeartbeat_RequiresTimestamp(t *testing.T) {
	_, err := NewHeartbeat("Patrick", time.Time{})
	if !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for zero time, got %v", err)
	}
}

func TestNext_ShiftsByInterval(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	hb, err := NewHeartbeat("Patrick", t1)
	if err != nil {
		t.Fatalf("NewHeartbeat returned error: %v", err)
	}

	next := hb.Next(10 * time.Second)
	if next.DeviceID != "Patrick" {
		t.Errorf("expected same device id, got %q", next.DeviceID)
	}
	if !next.Timestamp.Equal(t1.Add(10 * time.Second)) {
		t.Errorf("expected %v, got %v", t1.Add(10*time.Second), next.Timestamp)
	}
	if !hb.Timestamp.Equal(t1) {
		t.Errorf("Next must not modify the receiver")
	}
}

func TestReportRow_Status(t *testing.T) {
	cases := []struct {
		uptime int
		want   string
	}{
		{100, StatusOK},
		{90, StatusOK},
		{89, StatusDegraded},
		{50, StatusDegraded},
		{49, StatusDown},
		{0, StatusDown},
	}
	for _, tc := range cases {
		if got := (ReportRow{UptimePercent: tc.uptime}).Status(); got != tc.want {
			t.Errorf("Status(%d) = %q, want %q", tc.uptime, got, tc.want)
		}
	}
}
