package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events a single save produces.
const reloadDelay = 100 * time.Millisecond

// Watch calls onChange with the reloaded Config whenever the file at path
// changes, until ctx is cancelled. The parent directory is watched rather
// than the file, so saves that replace the file by rename keep being seen.
// A reload that fails to parse or validate is logged and skipped.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("config: watching for changes", zap.String("path", target))

	// stopped until the first matching event
	pending := time.NewTimer(reloadDelay)
	pending.Stop()
	defer pending.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// Remove and Rename are followed by a Create once the new file lands
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !armed {
				pending.Reset(reloadDelay)
				armed = true
			}

		case <-pending.C:
			armed = false
			cfg, err := Load(target)
			if err != nil {
				logger.Error("config: reload failed, keeping previous config",
					zap.String("path", target), zap.Error(err))
				continue
			}
			logger.Info("config: reloaded", zap.String("path", target))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config: watcher error", zap.Error(err))
		}
	}
}
