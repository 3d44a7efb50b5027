// Package hotreload watches the config file and re-applies runtime-safe
// settings (provider credential, CORS origins) without a restart.
package hotreload

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kwisener01/workassist/pkg/config"
)

// debounce collapses editor write bursts into one reload.
const debounce = 250 * time.Millisecond

// Watcher re-reads the config file on change and hands the parsed result to
// the registered callback.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(*config.Config)
	done     chan struct{}
}

// New starts watching path. onReload is called with each successfully parsed
// config; parse failures are logged and skipped.
func New(path string, onReload func(*config.Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors often replace the file, which would
	// drop a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		watcher:  fsw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[HotReload] watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := config.LoadConfigFromFile(w.path)
	if err != nil {
		log.Printf("[HotReload] failed to reload %s: %v", w.path, err)
		return
	}
	cfg.ApplyEnvOverrides()
	log.Printf("[HotReload] config reloaded from %s", w.path)
	w.onReload(cfg)
}
