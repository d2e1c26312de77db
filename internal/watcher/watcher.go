package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("watcher")

// JobSink receives import and remove jobs; *ingest.Worker satisfies it.
type JobSink interface {
	Enqueue(job ingest.Job) bool
}

// Watcher turns file system changes in the data directory into import
// jobs. Only the top level of the directory is watched.
type Watcher struct {
	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	sink      JobSink
	dir       string
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(config WatcherConfig, dir string, sink JobSink) (*Watcher, error) {
	if sink == nil {
		return nil, errors.New("watcher needs a job sink")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		sink:      sink,
		dir:       dir,
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.onFlush)

	return w, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	log.Info("watching data directory", "path", w.dir)

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	go w.handleEvents(ctx)
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			log.Debug("file event", "path", event.Name, "op", event.Op.String())

			if fileEvent := w.convertEvent(event); fileEvent != nil {
				w.debouncer.Add(*fileEvent)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// opTypes is checked in order; the first matching op names the event.
var opTypes = []struct {
	op  fsnotify.Op
	typ EventType
}{
	{fsnotify.Create, EventCreate},
	{fsnotify.Write, EventModify},
	{fsnotify.Remove, EventDelete},
	{fsnotify.Rename, EventRename},
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if w.shouldIgnore(event.Name) {
		return nil
	}
	for _, m := range opTypes {
		if event.Has(m.op) {
			return &FileEvent{Path: event.Name, Type: m.typ, Timestamp: time.Now()}
		}
	}
	return nil
}

// onFlush decides the job from what is on disk when the batch settles, not
// from the last event type: editors often save by delete and re-create.
func (w *Watcher) onFlush(events []FileEvent) {
	priority := ClassifyBatch(events)
	raw := 0
	for _, event := range events {
		raw += event.Count
	}
	log.Info("flushing events", "paths", len(events), "raw_events", raw, "priority", priority.String())

	for _, event := range events {
		op := ingest.OpImport
		info, err := os.Stat(event.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			op = ingest.OpRemove
		case err != nil:
			log.Debug("stat failed", "path", event.Path, "error", err)
			continue
		case info.IsDir():
			continue
		}

		if !w.sink.Enqueue(ingest.Job{Path: event.Path, Op: op, Priority: priority}) {
			log.Warn("dropped file event", "path", event.Path, "op", op)
		}
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(w.dir) {
		return true
	}

	basename := filepath.Base(path)
	if !w.config.WatchHidden && strings.HasPrefix(basename, ".") {
		return true
	}

	return !ingest.Matches(path, w.config.Include, w.config.Exclude)
}

// Stop flushes pending events and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsWatcher.Close()
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	log.Info("stopping file watcher")
	<-done
	w.debouncer.Stop()

	return w.fsWatcher.Close()
}
