package migrate

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change
// before signaling. Editors and generators touch several files in a burst;
// one signal covers the burst.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a migration directory and coalesces file changes into
// reload signals. Only migration files and the resolutions file count;
// editor droppings do not wake anyone.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan struct{}
	errs     chan error
	done     chan struct{}
	once     sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce overrides the coalescing window.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WatchDir starts watching the directory at path.
func WatchDir(path string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prax: starting migration watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("prax: watching %s: %w", path, err)
	}
	w := &Watcher{
		watcher:  fw,
		debounce: DefaultDebounce,
		events:   make(chan struct{}, 1),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w, nil
}

// Events signals once per coalesced burst of changes. The channel holds at
// most one pending signal; a reader that reloads on every receive sees
// every change.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Errors delivers watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
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
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevantChange(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-fire:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-fire:
			timer, fire = nil, nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// relevantChange filters for migration content: .sql files and the
// resolutions file.
func relevantChange(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".sql") || name == ResolutionsFile
}
