package domain

import "time"

// EventType identifies one transition in a job's lifecycle.
type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventPoll      EventType = "poll"
	EventSettled   EventType = "settled"
)

// Event is one entry of the batch's structured log stream. Sinks persist
// events externally; the orchestrator itself keeps nothing durable.
type Event struct {
	Time      time.Time     `json:"time"`
	Type      EventType     `json:"type"`
	BatchID   string        `json:"batch_id"`
	RequestID string        `json:"request_id"`
	TaskID    string        `json:"task_id,omitempty"`
	Label     string        `json:"label"`
	State     JobState      `json:"state,omitempty"`
	Status    StatusCode    `json:"status,omitempty"`
	Attempt   int           `json:"attempt,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// EventSink receives lifecycle events. Implementations must be safe for
// concurrent use; emit errors are the sink's problem and never fail a job.
type EventSink interface {
	Emit(ev Event)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
