package config

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events a single save produces
// (truncate, write, chmod, or rename+create from atomic-save editors).
const reloadDebounce = 100 * time.Millisecond

// Watch monitors path and calls onChange with the reloaded Config once a
// burst of file events has settled. Saves that leave the server section
// unchanged are not reported. It runs until ctx is cancelled.
//
// A failed reload is logged and the previous config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	last, err := Load(path)
	if err != nil {
		// Still watch: a later save may fix the file.
		slog.Warn("config: initial load for watch failed", "path", path, "err", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path, "debounce", reloadDebounce)

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(reloadDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil

			// Atomic saves replace the inode and drop the old watch.
			_ = watcher.Add(path)

			next, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}
			if last != nil && reflect.DeepEqual(last.Server, next.Server) {
				slog.Debug("config: file saved without changes", "path", path)
				continue
			}

			slog.Info("config: reloaded", "path", path, "changed", changedFields(last, next))
			last = next
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// changedFields names the hot-reloadable settings that differ between prev
// and next. Everything else needs a restart to take effect.
func changedFields(prev, next *Config) []string {
	if prev == nil {
		return []string{"log_level", "allowed_origins"}
	}
	var out []string
	if prev.Server.LogLevel != next.Server.LogLevel {
		out = append(out, "log_level")
	}
	if !reflect.DeepEqual(prev.Server.AllowedOrigins, next.Server.AllowedOrigins) {
		out = append(out, "allowed_origins")
	}
	return out
}
