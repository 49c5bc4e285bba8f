package tasks

import (
	"time"

	"github.com/desertthunder/prisync/internal/models"
)

// Outcome summarises one sync run.
type Outcome string

const (
	OutcomeSynced                 Outcome = "synced"
	OutcomePartial                Outcome = "partial"
	OutcomeFailed                 Outcome = "failed"
	OutcomeSkippedNoPriorityField Outcome = "skipped_no_priority_field"
	OutcomeSkippedGateDeclined    Outcome = "skipped_gate_declined"
)

// Skipped reports whether the run ended on a benign skip condition.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedNoPriorityField || o == OutcomeSkippedGateDeclined
}

// WriteResult is the result of one subtask update.
type WriteResult struct {
	SubtaskGID string
	Err        error
}

// SyncResult contains everything a single [Syncer.SyncPriority] run did.
type SyncResult struct {
	ParentGID string
	TargetGID string // empty means every subtask of the parent
	Policy    models.Policy
	Outcome   Outcome
	Decision  *PriorityDecision
	Writes    []WriteResult
	Err       error // set when the run aborted before or while listing subtasks
}

// Updated counts successful writes.
func (r *SyncResult) Updated() int {
	n := 0
	for _, w := range r.Writes {
		if w.Err == nil {
			n++
		}
	}
	return n
}

// Failures counts failed writes.
func (r *SyncResult) Failures() int {
	return len(r.Writes) - r.Updated()
}

// EventKind is how the classifier interpreted a webhook event.
type EventKind string

const (
	EventIgnored       EventKind = "ignored"
	EventSubtaskAdded  EventKind = "subtask_added"
	EventParentChanged EventKind = "parent_changed"
)

// EventResult is the classification and sync result for one event of a delivery.
type EventResult struct {
	Index       int
	Action      string
	ResourceGID string
	Kind        EventKind
	Reason      string // why the event was ignored
	Sync        *SyncResult
	Err         error
}

// BatchResult collects the results of one webhook delivery.
type BatchResult struct {
	DeliveryID  string
	ReceivedAt  time.Time
	CompletedAt time.Time
	Events      []EventResult
}

// Dispatched counts events that reached the sync orchestrator.
func (b *BatchResult) Dispatched() int {
	n := 0
	for _, e := range b.Events {
		if e.Sync != nil {
			n++
		}
	}
	return n
}

// Failures counts failed events plus failed subtask writes.
func (b *BatchResult) Failures() int {
	n := 0
	for _, e := range b.Events {
		if e.Err != nil {
			n++
			continue
		}
		if e.Sync != nil {
			n += e.Sync.Failures()
		}
	}
	return n
}
