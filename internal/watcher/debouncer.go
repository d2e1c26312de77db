package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Debouncer groups file events by path. A batch is handed to onFlush once
// no event has arrived for window, or as soon as maxBatch distinct paths
// are pending. Repeated events for a path merge into one entry.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	pending map[string]*FileEvent
	timer   *time.Timer
	closed  bool
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	d := &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]*FileEvent),
	}
	d.timer = time.AfterFunc(window, d.fire)
	d.timer.Stop()
	return d
}

func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	if cur, ok := d.pending[event.Path]; ok {
		cur.Type = event.Type
		cur.Count++
	} else {
		event.Count = 1
		d.pending[event.Path] = &event
	}

	if len(d.pending) >= d.maxBatch {
		batch := d.takeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}

	d.timer.Reset(d.window)
	d.mu.Unlock()
}

// Pending reports how many paths are waiting for the next flush.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// takeLocked empties the pending set and returns it ordered by path.
func (d *Debouncer) takeLocked() []FileEvent {
	d.timer.Stop()
	if len(d.pending) == 0 {
		return nil
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, event := range d.pending {
		batch = append(batch, *event)
	}
	clear(d.pending)

	slices.SortFunc(batch, func(a, b FileEvent) int { return strings.Compare(a.Path, b.Path) })
	return batch
}

func (d *Debouncer) deliver(batch []FileEvent) {
	if len(batch) > 0 && d.onFlush != nil {
		d.onFlush(batch)
	}
}

// Stop delivers what is pending and drops every later event.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}
