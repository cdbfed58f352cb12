package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yanun0323/logs"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads the Store early when its file changes on disk. It watches
// the parent directory so editors that save by rename are caught too.
// By default reload failures are logged and the previous snapshot is kept.
type Watcher struct {
	store    *Store
	debounce time.Duration
	reload   func() error

	fs       *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReload replaces the reload run on each change. The hook owns the
// failure policy; a returned error is only logged by the Watcher.
func WithReload(reload func() error) WatcherOption {
	return func(w *Watcher) { w.reload = reload }
}

// NewWatcher creates a stopped watcher for store.
func NewWatcher(store *Store, debounce time.Duration, opts ...WatcherOption) *Watcher {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w := &Watcher{
		store:    store,
		debounce: debounce,
		reload:   store.Reload,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching.
func (w *Watcher) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(filepath.Dir(w.store.Path())); err != nil {
		_ = fs.Close()
		return err
	}
	w.fs = fs
	w.wg.Add(1)
	go w.loop()
	logs.Infof("config: watching %s", w.store.Path())
	return nil
}

// Stop ends the watch loop and waits for an in-flight reload to finish.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	target := filepath.Clean(w.store.Path())
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logs.Errorf("config: watch %s, err: %+v", target, err)
		case <-pending:
			pending = nil
			before := w.store.Version()
			if err := w.reload(); err != nil {
				logs.Errorf("config: reload on change, err: %+v", err)
				continue
			}
			if version := w.store.Version(); version != before {
				logs.Infof("config: reloaded %s on change, version %d", target, version)
			}
		}
	}
}
