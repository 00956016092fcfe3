package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// Watch reloads after the index file is replaced or rewritten on disk,
// until ctx ends. Save renames a temp file over the index, so the parent
// directory is watched. Bursts of events within debounce trigger a single
// reload.
func (r *Reloader) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating index watcher: %w", err)
	}
	defer w.Close()

	target := absPath(r.path)
	dir := filepath.Dir(target)
	if err := w.Add(dir); err != nil {
		return herrors.NewIO("watch", dir, err)
	}
	r.logger.Info("watching index file", "dir", dir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if absPath(ev.Name) != target || !ev.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			r.logger.Debug("index file changed", "op", ev.Op.String())
			timer.Reset(debounce)
		case <-timer.C:
			r.Reload(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("index watcher error", "error", err)
		}
	}
}
