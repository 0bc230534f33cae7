// Package ingest serialises heartbeats from every transport onto a single
// goroutine that owns writes to the uptime service.
package ingest

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"uptimeboard/internal/core/domain"
	"uptimeboard/internal/core/ports"
)

// DefaultQueueSize is used when a non-positive size is passed to NewWorker.
const DefaultQueueSize = 1024

// ErrQueueFull is returned by TrySubmit when the queue has no free slot.
var ErrQueueFull = errors.New("ingest queue full")

// Submitter is what transports depend on.
type Submitter interface {
	Submit(ctx context.Context, hb domain.Heartbeat) error
	TrySubmit(hb domain.Heartbeat) error
}

// Stats are running counters, safe to read at any time.
type Stats struct {
	Accepted uint64
	Rejected uint64
	Dropped  uint64
}

// Worker drains a bounded queue into an UptimeService.
type Worker struct {
	svc    ports.UptimeService
	queue  chan domain.Heartbeat
	logger *zap.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

// NewWorker creates a worker with the given queue depth.
func NewWorker(svc ports.UptimeService, size int, logger *zap.Logger) *Worker {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		svc:    svc,
		queue:  make(chan domain.Heartbeat, size),
		logger: logger,
	}
}

// Submit enqueues hb, blocking until there is room or ctx is done.
func (w *Worker) Submit(ctx context.Context, hb domain.Heartbeat) error {
	select {
	case w.queue <- hb:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues hb without blocking.
func (w *Worker) TrySubmit(hb domain.Heartbeat) error {
	select {
	case w.queue <- hb:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run applies queued heartbeats in order until ctx is cancelled. Heartbeats
// still queued at cancellation are applied before Run returns.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case hb := <-w.queue:
			w.apply(hb)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

// Len is the number of heartbeats waiting in the queue.
func (w *Worker) Len() int { return len(w.queue) }

// Cap is the queue depth.
func (w *Worker) Cap() int { return cap(w.queue) }

// Stats returns a copy of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Accepted: w.accepted.Load(),
		Rejected: w.rejected.Load(),
		Dropped:  w.dropped.Load(),
	}
}

func (w *Worker) drain() {
	for {
		select {
		case hb := <-w.queue:
			w.apply(hb)
		default:
			return
		}
	}
}

func (w *Worker) apply(hb domain.Heartbeat) {
	if err := w.svc.Ingest(hb); err != nil {
		w.rejected.Add(1)
		w.logger.Warn("heartbeat rejected",
			zap.String("device_id", hb.DeviceID),
			zap.Time("timestamp", hb.Timestamp),
			zap.Error(err))
		return
	}
	w.accepted.Add(1)
}
