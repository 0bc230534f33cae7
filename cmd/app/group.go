package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// group runs the long-lived parts of serve. The first one to fail cancels
// the others and its error is what Wait reports.
type group struct {
	cancel context.CancelFunc
	log    *zap.Logger

	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func newGroup(cancel context.CancelFunc, log *zap.Logger) *group {
	return &group{cancel: cancel, log: log}
}

// Go runs fn on its own goroutine with ctx.
func (g *group) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(ctx); err != nil {
			g.log.Error(name+" stopped", zap.Error(err))
			g.once.Do(func() {
				g.err = fmt.Errorf("%s: %w", name, err)
				g.cancel()
			})
		}
	}()
}

// Wait blocks until every goroutine has returned.
func (g *group) Wait() error {
	g.wg.Wait()
	return g.err
}
