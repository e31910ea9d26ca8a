package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/constellation-netview/internal/logging"
)

// DefaultDebounce is the quiet period before a changed file is re-read.
const DefaultDebounce = 100 * time.Millisecond

// NodeHandler receives a freshly loaded node after the watched file changes.
// A file that no longer decodes is delivered as an empty node.
type NodeHandler func(*Node)

// Watcher reloads a config node file when it changes on disk. Bursts of
// events (editors that write then rename) are collapsed by a debounce
// window.
type Watcher struct {
	path     string
	handler  NodeHandler
	debounce time.Duration
	log      logging.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher prepares a watcher for path. Call Start to begin watching.
func NewWatcher(path string, handler NodeHandler, debounce time.Duration, log logging.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Noop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     abs,
		handler:  handler,
		debounce: debounce,
		log:      log.With(logging.String("path", abs)),
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory, so the file may be replaced by rename.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "config watcher error", logging.Err(err))
		case <-timer.C:
			node, err := LoadNode(w.path)
			switch {
			case errors.Is(err, ErrNodeMalformed):
				w.log.Warn(ctx, "config file malformed; delivering empty node", logging.Err(err))
				node = NewNode()
			case err != nil:
				w.log.Warn(ctx, "config reload failed", logging.Err(err))
				continue
			}
			w.log.Debug(ctx, "config reloaded", logging.Int("keys", len(node.Keys())))
			if w.handler != nil {
				w.handler(node)
			}
		}
	}
}
