package domain

import (
	"errors"
	"testing"
	"time"

	coreerrors "uptimeboard/internal/core/errors"
)

// aligned on a 10s boundary
var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func hbsAt(id string, offsets ...time.Duration) []Heartbeat {
	out := make([]Heartbeat, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, Heartbeat{DeviceID: id, Timestamp: base.Add(o)})
	}
	return out
}

func TestExpectedCount(t *testing.T) {
	cases := []struct {
		interval, window time.Duration
		want             int
	}{
		{10 * time.Second, 30 * time.Second, 4},
		{10 * time.Second, 35 * time.Second, 3},
		{10 * time.Second, 10 * time.Second, 2},
		{10 * time.Second, 60 * time.Second, 7},
		{10 * time.Second, 5 * time.Second, 0},
		{10 * time.Second, time.Hour, 361},
	}
	for _, tc := range cases {
		got, err := ExpectedCount(tc.interval, tc.window)
		if err != nil {
			t.Fatalf("ExpectedCount(%s, %s) returned error: %v", tc.interval, tc.window, err)
		}
		if got != tc.want {
			t.Errorf("ExpectedCount(%s, %s) = %d, want %d", tc.interval, tc.window, got, tc.want)
		}
	}
}

func TestExpectedCount_RejectsNonPositive(t *testing.T) {
	for _, tc := range []struct{ interval, window time.Duration }{
		{0, 30 * time.Second},
		{-time.Second, 30 * time.Second},
		{10 * time.Second, 0},
		{10 * time.Second, -time.Second},
	} {
		if _, err := ExpectedCount(tc.interval, tc.window); !errors.Is(err, coreerrors.ErrInvalidParameter) {
			t.Errorf("ExpectedCount(%s, %s): expected ErrInvalidParameter, got %v", tc.interval, tc.window, err)
		}
	}
}

func TestExpectedCountAt_DropsBoundaryTickWhenUnaligned(t *testing.T) {
	got, err := ExpectedCountAt(10*time.Second, 30*time.Second, base.Add(20*time.Second))
	if err != nil {
		t.Fatalf("ExpectedCountAt returned error: %v", err)
	}
	if got != 4 {
		t.Errorf("aligned end: expected 4, got %d", got)
	}

	got, _ = ExpectedCountAt(10*time.Second, 30*time.Second, base.Add(21*time.Second))
	if got != 3 {
		t.Errorf("unaligned end: expected 3, got %d", got)
	}

	got, _ = ExpectedCountAt(10*time.Second, 35*time.Second, base.Add(20*time.Second))
	if got != 3 {
		t.Errorf("non-multiple window: expected 3, got %d", got)
	}
}

func TestIsAligned(t *testing.T) {
	if !IsAligned(base, 10*time.Second) {
		t.Errorf("expected %v to be aligned on 10s", base)
	}
	if IsAligned(base.Add(time.Second), 10*time.Second) {
		t.Errorf("expected %v to be unaligned on 10s", base.Add(time.Second))
	}
	if IsAligned(base.Add(500*time.Millisecond), time.Second) {
		t.Errorf("sub-second remainder must count as unaligned")
	}
	if IsAligned(base, 0) {
		t.Errorf("zero interval is never aligned")
	}
}

func TestSelect_AlignedEndIsInclusive(t *testing.T) {
	hbs := hbsAt("d", 0, 10*time.Second, 20*time.Second, 30*time.Second)
	end := base.Add(30 * time.Second)

	got, err := Select(hbs, end.Add(-30*time.Second), end, 10*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 ticks (0,10,20,30), got %d", len(got))
	}
}

func TestSelect_UnalignedEndIsExclusive(t *testing.T) {
	hbs := hbsAt("d", 0, 10*time.Second, 20*time.Second, 25*time.Second)
	end := base.Add(25 * time.Second)

	got, err := Select(hbs, end.Add(-30*time.Second), end, 10*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected the heartbeat at the unaligned end to be excluded, got %d", len(got))
	}
}

func TestSelect_StartIsAlwaysInclusive(t *testing.T) {
	hbs := hbsAt("d", -time.Second, 0, 5*time.Second)
	start := base
	end := base.Add(7 * time.Second)

	got, _ := Select(hbs, start, end, 10*time.Second)
	if len(got) != 2 {
		t.Fatalf("expected heartbeats at start and inside window, got %d", len(got))
	}
}

func TestSelect_RejectsNonPositiveInterval(t *testing.T) {
	if _, err := Select(nil, base, base, 0); !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestInWindow_IsInclusiveBothEnds(t *testing.T) {
	start := base
	end := base.Add(7 * time.Second)

	if !InWindow(start, start, end) || !InWindow(end, start, end) {
		t.Fatalf("expected both boundaries to be inside")
	}
	if InWindow(end.Add(time.Nanosecond), start, end) || InWindow(start.Add(-time.Nanosecond), start, end) {
		t.Fatalf("expected points outside the range to be excluded")
	}
}

func TestPercent_Truncates(t *testing.T) {
	if got := Percent(5, 6); got != 83 {
		t.Errorf("Percent(5,6) = %d, want 83", got)
	}
	if got := Percent(0, 6); got != 0 {
		t.Errorf("Percent(0,6) = %d, want 0", got)
	}
	if got := Percent(7, 6); got != 100 {
		t.Errorf("Percent(7,6) = %d, want clamp to 100", got)
	}
}
