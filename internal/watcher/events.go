package watcher

import (
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// FileEvent is the debounced view of one path: Timestamp is when it was
// first seen in the batch, Type the latest change and Count how many raw
// events were merged into it.
type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
	Count     int
}

// ClassifyBatch maps the size of a flushed batch onto a queue priority.
// Bulk copies into the data directory go to the back of the line.
func ClassifyBatch(events []FileEvent) ingest.JobPriority {
	count := len(events)

	if count > 10 {
		return ingest.PriorityLow
	}

	if count >= 3 {
		return ingest.PriorityNormal
	}

	return ingest.PriorityHigh
}
