package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"targetscope/internal/logging"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config at path whenever it is written and passes the
// result to onChange. Invalid files are logged and skipped. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			cfg, err := Load(path)
			if err != nil {
				logging.Error("config_reload_error", map[string]any{"path": path, "error": err.Error()})
				continue
			}
			logging.Info("config_reloaded", map[string]any{"path": path})
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("config_watch_error", map[string]any{"error": err.Error()})
		}
	}
}
