package ingest

import (
	"context"

	"uptimeboard/internal/core/domain"
	"uptimeboard/internal/core/ports"
)

// Direct applies heartbeats synchronously on the caller's goroutine. It is
// used for CSV backfill before the worker starts and in handler tests.
type Direct struct {
	Svc ports.UptimeService
}

// Submit ingests hb immediately.
func (d Direct) Submit(ctx context.Context, hb domain.Heartbeat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.Svc.Ingest(hb)
}

// TrySubmit ingests hb immediately.
func (d Direct) TrySubmit(hb domain.Heartbeat) error {
	return d.Svc.Ingest(hb)
}
