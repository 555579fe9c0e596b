// Package watcher re-ingests the evidence catalog when its seed file
// changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"dcia/internal/errors"
	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the bursts of write events editors produce when
// saving a file.
const debounceDelay = 500 * time.Millisecond

// Watch blocks watching the seed file until the context is cancelled,
// invoking reload after each change. Editors often replace files instead of
// writing in place, so the parent directory is watched and events are
// filtered by name.
func Watch(ctx context.Context, path string, logger *slog.Logger, reload func(context.Context) error) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer func() {
		_ = notifier.Close()
	}()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve seed path", slog.String("path", path))
	}
	if err = notifier.Add(filepath.Dir(absPath)); err != nil {
		return errors.Wrap(err, "watch seed directory", slog.String("path", absPath))
	}

	logger = logger.With("source", "watcher", "path", absPath)
	logger.LogAttrs(ctx, slog.LevelInfo, "watching catalog seed")

	var debounce *time.Timer
	reloads := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reloads <- struct{}{}:
				default:
				}
			})
		case <-reloads:
			logger.LogAttrs(ctx, slog.LevelInfo, "catalog seed changed, reloading")
			if err := reload(ctx); err != nil {
				logger.LogAttrs(ctx, slog.LevelError, "catalog reload failed", errors.SlogError(err))
			}
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logger.LogAttrs(ctx, slog.LevelError, "file watcher error", errors.SlogError(err))
		}
	}
}
