package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/normalize"
)

// DefaultSettleDelay is how long a file must go without writes before it is
// ingested.
const DefaultSettleDelay = 500 * time.Millisecond

var (
	// ErrWatcherFailed indicates the filesystem watcher could not start.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

	// ErrIngesterRequired is returned when a watcher has nothing to ingest with.
	ErrIngesterRequired = errors.New("ingester required")
)

// Ingester runs one file through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*Result, error)
}

var _ Ingester = (*Pipeline)(nil)

// Watcher ingests files as they appear in a directory. Subdirectories are
// not watched.
type Watcher struct {
	dir      string
	ingester Ingester
	delay    time.Duration
	accept   func(name string) bool
	logger   *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettleDelay sets the quiet period before a changed file is ingested.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatcherLogger sets a custom logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for dir. Only files with an allowed upload
// extension are ingested.
func NewWatcher(dir string, ingester Ingester, opts ...WatcherOption) (*Watcher, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWatcherFailed, dir)
	}

	w := &Watcher{
		dir:      dir,
		ingester: ingester,
		delay:    DefaultSettleDelay,
		accept:   normalize.IsAllowed,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher", "dir", dir)
	return w, nil
}

// Run watches until ctx is cancelled. Each file is ingested once its writes
// settle; failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("%w: watching %s: %v", ErrWatcherFailed, w.dir, err)
	}
	w.logger.Info("watching for new documents")

	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accept(event.Name) {
				continue
			}
			if t, ok := pending[event.Name]; ok {
				t.Reset(w.delay)
				continue
			}
			name := event.Name
			pending[name] = time.AfterFunc(w.delay, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			w.ingest(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	res, err := w.ingester.Ingest(ctx, path)
	switch {
	case errors.Is(err, core.ErrUnsupportedFiletype):
		w.logger.Warn("unsupported file", "path", path)
	case err != nil:
		w.logger.Error("ingest failed", "path", path, "err", err)
	default:
		w.logger.Info("ingested", "path", path, "added", res.ChunksAdded, "run_id", res.RunID)
	}
}
