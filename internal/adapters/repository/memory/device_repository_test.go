package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"uptimeboard/internal/core/domain"
	coreerrors "uptimeboard/internal/core/errors"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func appendHeartbeat(id string, ts time.Time) func(d *domain.Device) error {
	return func(d *domain.Device) error {
		return d.AddHeartbeat(domain.Heartbeat{DeviceID: id, Timestamp: ts})
	}
}

// -----------------------------------------------------------------------------
// Tests for WithDevice
// -----------------------------------------------------------------------------

func TestWithDevice_CreatesAndMutatesDevice(t *testing.T) {
	repo := NewDeviceRepository()
	id := "dev-1"

	// First call should auto-create the device.
	if err := repo.WithDevice(id, func(d *domain.Device) error {
		if d.ID() != id {
			t.Errorf("expected ID=%q, got %q", id, d.ID())
		}
		return d.AddHeartbeat(domain.Heartbeat{DeviceID: id, Timestamp: t0})
	}); err != nil {
		t.Fatalf("WithDevice returned error on first call: %v", err)
	}

	// Second call mutates the same device.
	if err := repo.WithDevice(id, appendHeartbeat(id, t0.Add(10*time.Second))); err != nil {
		t.Fatalf("WithDevice returned error on second call: %v", err)
	}

	snap, err := repo.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot returned error: %v", err)
	}

	if len(snap.Heartbeats) != 2 {
		t.Errorf("expected 2 heartbeats after two appends, got %d", len(snap.Heartbeats))
	}
	if !snap.LastSeen.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("expected LastSeen=%v, got %v", t0.Add(10*time.Second), snap.LastSeen)
	}
}

func TestWithDevice_PropagatesErrorFromCallback(t *testing.T) {
	repo := NewDeviceRepository()
	id := "dev-err"
	wantErr := errors.New("boom")

	err := repo.WithDevice(id, func(d *domain.Device) error {
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected WithDevice to return callback error %v, got %v", wantErr, err)
	}
	if repo.Count() != 0 {
		t.Fatalf("a failed first call must not register the device, got %d devices", repo.Count())
	}
}

func TestWithDevice_MismatchLeavesRegistryUntouched(t *testing.T) {
	repo := NewDeviceRepository()

	err := repo.WithDevice("x", appendHeartbeat("y", t0))
	if !errors.Is(err, coreerrors.ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
	if ids := repo.IDs(); len(ids) != 0 {
		t.Fatalf("expected no registered ids, got %v", ids)
	}
	if _, err := repo.GetSnapshot("x"); !errors.Is(err, coreerrors.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	// an existing device keeps its history when the callback fails
	if err := repo.WithDevice("x", appendHeartbeat("x", t0)); err != nil {
		t.Fatalf("WithDevice returned error: %v", err)
	}
	_ = repo.WithDevice("x", appendHeartbeat("y", t0.Add(time.Second)))
	snap, _ := repo.GetSnapshot("x")
	if len(snap.Heartbeats) != 1 || !snap.LastSeen.Equal(t0) {
		t.Fatalf("expected history unchanged after mismatch, got %+v", snap)
	}
}

func TestWithDevice_ConcurrentFirstSightingCreatesOneDevice(t *testing.T) {
	repo := NewDeviceRepository()
	id := "dev-race"

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.WithDevice(id, appendHeartbeat(id, t0.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	if repo.Count() != 1 {
		t.Fatalf("expected exactly one device, got %d", repo.Count())
	}
	snap, _ := repo.GetSnapshot(id)
	if len(snap.Heartbeats) != 50 {
		t.Fatalf("expected all 50 appends to be visible, got %d", len(snap.Heartbeats))
	}
	if !snap.LastSeen.Equal(t0.Add(49 * time.Second)) {
		t.Fatalf("expected LastSeen to be the maximum, got %v", snap.LastSeen)
	}
}

// -----------------------------------------------------------------------------
// Tests for Count / IDs
// -----------------------------------------------------------------------------

func TestCount_CountsSuccessfulCreations(t *testing.T) {
	repo := NewDeviceRepository()
	if repo.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", repo.Count())
	}

	if err := repo.WithDevice("dev-1", func(d *domain.Device) error {
		return nil
	}); err != nil {
		t.Fatalf("WithDevice returned error: %v", err)
	}

	if repo.Count() != 1 {
		t.Fatalf("expected 1 device after WithDevice, got %d", repo.Count())
	}
}

func TestIDs_ReturnsEveryDeviceOnce(t *testing.T) {
	repo := NewDeviceRepository()
	for _, id := range []string{"c", "a", "b", "a", "c"} {
		_ = repo.WithDevice(id, appendHeartbeat(id, t0))
	}

	ids := repo.IDs()
	want := []string{"a", "b", "c"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}

// -----------------------------------------------------------------------------
// Tests for GetSnapshot
// -----------------------------------------------------------------------------

func TestGetSnapshot_NotFoundReturnsErrDeviceNotFound(t *testing.T) {
	repo := NewDeviceRepository()

	snap, err := repo.GetSnapshot("missing-id")
	if !errors.Is(err, coreerrors.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if snap != nil {
		t.Fatalf("expected snapshot to be nil when error is returned, got %+v", snap)
	}
}

func TestGetSnapshot_ReturnsCopyNotOriginal(t *testing.T) {
	repo := NewDeviceRepository()
	id := "dev-1"

	if err := repo.WithDevice(id, appendHeartbeat(id, t0)); err != nil {
		t.Fatalf("WithDevice returned error: %v", err)
	}

	// Take a snapshot and mutate it.
	snap1, err := repo.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot returned error: %v", err)
	}
	snap1.Heartbeats[0].Timestamp = t0.Add(999 * time.Hour)
	snap1.Heartbeats = append(snap1.Heartbeats, domain.Heartbeat{DeviceID: id})

	// Take another snapshot; it should not see the mutation.
	snap2, err := repo.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot returned error: %v", err)
	}

	if len(snap2.Heartbeats) != 1 || !snap2.Heartbeats[0].Timestamp.Equal(t0) {
		t.Fatalf("expected underlying history to be unchanged, got %+v", snap2.Heartbeats)
	}
}

// -----------------------------------------------------------------------------
// Tests for concurrent readers
// -----------------------------------------------------------------------------

func TestGetSnapshot_ConsistentWhileAppending(t *testing.T) {
	repo := NewDeviceRepository()
	ids := []string{"dev-a", "dev-b", "dev-c"}

	const perDevice = 200
	var writers sync.WaitGroup
	for _, id := range ids {
		writers.Add(1)
		go func(id string) {
			defer writers.Done()
			for i := 0; i < perDevice; i++ {
				// alternate early and late timestamps so arrival order is not chronological
				ts := t0.Add(time.Duration(i) * time.Second)
				if i%2 == 1 {
					ts = t0.Add(-time.Duration(i) * time.Second)
				}
				_ = repo.WithDevice(id, appendHeartbeat(id, ts))
			}
		}(id)
	}

	done := make(chan struct{})
	errs := make(chan string, 16)
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, id := range repo.IDs() {
					snap, err := repo.GetSnapshot(id)
					if err != nil {
						errs <- fmt.Sprintf("%s listed but not found: %v", id, err)
						return
					}
					if len(snap.Heartbeats) == 0 {
						errs <- fmt.Sprintf("%s registered without heartbeats", id)
						return
					}
					newest := snap.Heartbeats[0].Timestamp
					for _, hb := range snap.Heartbeats {
						if hb.Timestamp.After(newest) {
							newest = hb.Timestamp
						}
					}
					if !snap.LastSeen.Equal(newest) {
						errs <- fmt.Sprintf("%s LastSeen %v does not match newest copied heartbeat %v", id, snap.LastSeen, newest)
						return
					}
				}
			}
		}()
	}

	writers.Wait()
	close(done)
	readers.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	for _, id := range ids {
		snap, _ := repo.GetSnapshot(id)
		if len(snap.Heartbeats) != perDevice {
			t.Errorf("%s: expected %d heartbeats, got %d", id, perDevice, len(snap.Heartbeats))
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for EvictBefore
// -----------------------------------------------------------------------------

func TestEvictBefore_TrimsEveryDeviceAndKeepsLastSeen(t *testing.T) {
	repo := NewDeviceRepository()
	for i := 0; i < 6; i++ {
		_ = repo.WithDevice("a", appendHeartbeat("a", t0.Add(time.Duration(i)*10*time.Second)))
		_ = repo.WithDevice("b", appendHeartbeat("b", t0.Add(time.Duration(i)*10*time.Second)))
	}

	if n := repo.EvictBefore(t0.Add(30 * time.Second)); n != 6 {
		t.Fatalf("expected 6 evicted heartbeats, got %d", n)
	}

	for _, id := range []string{"a", "b"} {
		snap, _ := repo.GetSnapshot(id)
		if len(snap.Heartbeats) != 3 {
			t.Fatalf("%s: expected 3 heartbeats, got %d", id, len(snap.Heartbeats))
		}
		if !snap.LastSeen.Equal(t0.Add(50 * time.Second)) {
			t.Fatalf("%s: LastSeen must not move, got %v", id, snap.LastSeen)
		}
	}
	if repo.Count() != 2 {
		t.Fatalf("eviction must not unregister devices, got %d", repo.Count())
	}
}
