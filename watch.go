package parango

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch reloads the content whenever a file under ContentDir changes,
// until ctx is cancelled. Bursts of events within watchDebounce trigger a
// single reload.
func (a *App) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("parango: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, a.Config.ContentDir); err != nil {
		return fmt.Errorf("parango: watch %s: %w", a.Config.ContentDir, err)
	}
	a.Echo.Logger.Infof("parango: watching %s", a.Config.ContentDir)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// New directories are not watched automatically.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, ev.Name); err != nil {
						a.Echo.Logger.Warnf("watch %s: %v", ev.Name, err)
					}
				}
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Echo.Logger.Warnf("watcher: %v", err)
		case <-timer.C:
			if err := a.Reload(ctx); err != nil {
				var ce *ContentError
				if !errors.As(err, &ce) && ctx.Err() != nil {
					return nil
				}
				a.Echo.Logger.Warnf("%v", err)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
