package attempt

import (
	"context"
	"sync"
	"time"
)

// EventKind names a lifecycle event of an attempt.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventResumed   EventKind = "resumed"
	EventSkipped   EventKind = "skipped"
	EventTimeout   EventKind = "timeout"
	EventSaved     EventKind = "saved"
	EventSubmitted EventKind = "submitted"
	EventAccepted  EventKind = "accepted"
	EventRejected  EventKind = "rejected"
)

// Event is one entry of an attempt's audit trail.
type Event struct {
	Sequence  int64     `json:"sequence"`
	AttemptID string    `json:"attemptId"`
	Kind      EventKind `json:"kind"`
	Item      int       `json:"item"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Journal records attempt lifecycle events in order.
type Journal interface {
	Append(ctx context.Context, ev Event) error
	Events(ctx context.Context, attemptID string) ([]Event, error)
}

// NopJournal discards events.
type NopJournal struct{}

func (NopJournal) Append(context.Context, Event) error             { return nil }
func (NopJournal) Events(context.Context, string) ([]Event, error) { return nil, nil }

// MemoryJournal keeps events in process memory.
type MemoryJournal struct {
	mu     sync.Mutex
	seq    int64
	events []Event
}

func (j *MemoryJournal) Append(ctx context.Context, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	ev.Sequence = j.seq
	j.events = append(j.events, ev)
	return nil
}

func (j *MemoryJournal) Events(ctx context.Context, attemptID string) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Event
	for _, ev := range j.events {
		if ev.AttemptID == attemptID {
			out = append(out, ev)
		}
	}
	return out, nil
}
