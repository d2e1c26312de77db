package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type JobOp string

const (
	OpImport JobOp = "import"
	OpRemove JobOp = "remove"
)

type JobPriority int

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
)

func (p JobPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

type Job struct {
	Path     string
	Op       JobOp
	Priority JobPriority
}

// FileImporter is the part of Importer the worker drives.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (*TableResult, error)
	Remove(ctx context.Context, path string) (string, error)
}

type WorkerConfig struct {
	WorkerCount  int
	MaxQueueSize int
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		WorkerCount:  2,
		MaxQueueSize: 256,
	}
}

type WorkerStats struct {
	Imported     int64     `json:"imported"`
	Removed      int64     `json:"removed"`
	Failed       int64     `json:"failed"`
	Skipped      int64     `json:"skipped"`
	InQueue      int64     `json:"in_queue"`
	IsRunning    bool      `json:"is_running"`
	StartedAt    time.Time `json:"started_at"`
	LastImported time.Time `json:"last_imported"`
}

type Worker struct {
	importer FileImporter
	config   WorkerConfig

	highQueue   chan Job
	normalQueue chan Job
	lowQueue    chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats   WorkerStats
	statsMu sync.RWMutex
}

func NewWorker(importer FileImporter, config WorkerConfig) *Worker {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = DefaultWorkerConfig().MaxQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		importer:    importer,
		config:      config,
		highQueue:   make(chan Job, config.MaxQueueSize),
		normalQueue: make(chan Job, config.MaxQueueSize),
		lowQueue:    make(chan Job, config.MaxQueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *Worker) Start() {
	w.statsMu.Lock()
	w.stats.IsRunning = true
	w.stats.StartedAt = time.Now()
	w.statsMu.Unlock()

	log.Info("import worker started", "workers", w.config.WorkerCount)

	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
}

// Stop cancels in-flight imports and waits for the goroutines to exit.
// Jobs still queued are dropped.
func (w *Worker) Stop() {
	log.Info("import worker stopping")

	w.cancel()
	w.wg.Wait()

	w.statsMu.Lock()
	w.stats.IsRunning = false
	w.statsMu.Unlock()

	log.Info("import worker stopped")
}

// Enqueue reports false when the queue for the job's priority is full.
func (w *Worker) Enqueue(job Job) bool {
	if job.Op == "" {
		job.Op = OpImport
	}

	var queue chan Job
	switch job.Priority {
	case PriorityHigh:
		queue = w.highQueue
	case PriorityLow:
		queue = w.lowQueue
	default:
		queue = w.normalQueue
	}

	select {
	case queue <- job:
		atomic.AddInt64(&w.stats.InQueue, 1)
		return true
	default:
		log.Warn("job enqueue failed - queue full", "path", job.Path, "priority", job.Priority.String())
		return false
	}
}

func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	stats := WorkerStats{
		IsRunning:    w.stats.IsRunning,
		StartedAt:    w.stats.StartedAt,
		LastImported: w.stats.LastImported,
	}
	w.statsMu.RUnlock()

	stats.Imported = atomic.LoadInt64(&w.stats.Imported)
	stats.Removed = atomic.LoadInt64(&w.stats.Removed)
	stats.Failed = atomic.LoadInt64(&w.stats.Failed)
	stats.Skipped = atomic.LoadInt64(&w.stats.Skipped)
	stats.InQueue = atomic.LoadInt64(&w.stats.InQueue)
	return stats
}

func (w *Worker) worker(id int) {
	defer w.wg.Done()

	for {
		job, ok := w.next()
		if !ok {
			return
		}

		atomic.AddInt64(&w.stats.InQueue, -1)
		log.Debug("worker processing job", "worker_id", id, "path", job.Path, "op", job.Op)
		w.processJob(job)
	}
}

// next prefers high over normal over low, and blocks when all are empty.
func (w *Worker) next() (Job, bool) {
	select {
	case job := <-w.highQueue:
		return job, true
	default:
	}

	select {
	case job := <-w.highQueue:
		return job, true
	case job := <-w.normalQueue:
		return job, true
	default:
	}

	select {
	case <-w.ctx.Done():
		return Job{}, false
	case job := <-w.highQueue:
		return job, true
	case job := <-w.normalQueue:
		return job, true
	case job := <-w.lowQueue:
		return job, true
	}
}

func (w *Worker) processJob(job Job) {
	switch job.Op {
	case OpRemove:
		table, err := w.importer.Remove(w.ctx, job.Path)
		if err != nil {
			atomic.AddInt64(&w.stats.Failed, 1)
			log.Warn("failed to remove table", "path", job.Path, "error", err)
			return
		}
		if table == "" {
			atomic.AddInt64(&w.stats.Skipped, 1)
			return
		}
		atomic.AddInt64(&w.stats.Removed, 1)

	default:
		result, err := w.importer.ImportFile(w.ctx, job.Path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			atomic.AddInt64(&w.stats.Failed, 1)
			log.Warn("failed to import", "path", job.Path, "error", err)
			return
		}
		if result == nil {
			atomic.AddInt64(&w.stats.Skipped, 1)
			return
		}

		atomic.AddInt64(&w.stats.Imported, 1)
		w.statsMu.Lock()
		w.stats.LastImported = time.Now()
		w.statsMu.Unlock()
	}
}
