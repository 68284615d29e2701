// Package watcher turns filesystem events on a single inbox directory
// into debounced discovery notifications. New files settle for a short
// window before they are announced so a half-written file is never read
// mid-copy; edits to files that were already announced are ignored.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quillmind-ai/quillmind/pkg/safe"
)

// DefaultDebounce is the write-settle window for newly created files.
const DefaultDebounce = 2 * time.Second

type Watcher struct {
	dir      string
	debounce time.Duration
	exts     map[string]bool

	fsw    *fsnotify.Watcher
	events chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
	ctx     context.Context
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions restricts discovery to the given extensions. An empty
// list keeps every regular file ingestible.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.exts[ext] = true
		}
	}
}

func New(dir string, opts ...Option) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}

	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		exts:     map[string]bool{},
		events:   make(chan string, 64),
		pending:  map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Watcher) Dir() string {
	return w.dir
}

// Events delivers absolute paths of settled, ingestible files.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// ListExisting returns the ingestible files already sitting in the
// directory, for the startup catch-up sweep.
func (w *Watcher) ListExisting() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read watch directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isTransient(entry.Name()) || !w.ingestible(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(w.dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("init fs watcher: %w", err)
	}
	if err = fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.ctx = ctx

	go safe.Run(func() {
		w.loop(ctx)
	})
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("directory watch error", slog.String("dir", w.dir), slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isTransient(name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
		if !w.ingestible(name) {
			return
		}
		w.schedule(event.Name)
	case event.Op.Has(fsnotify.Write):
		// writes during the settle window restart it; writes to files
		// with no pending discovery are edits and stay ignored
		w.restart(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.fire(path)
	})
}

func (w *Watcher) restart(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	// the file may have been removed while settling
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	select {
	case w.events <- path:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) ingestible(name string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// isTransient filters the droppings editors and copy tools leave next
// to real files.
func isTransient(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".swp", ".crdownload":
		return true
	}
	return false
}
