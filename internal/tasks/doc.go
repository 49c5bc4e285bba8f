// Package tasks implements the priority synchronization engine between parent tasks and their subtasks.
//
// # Core Operations
//
// [Syncer] exposes two entry points:
//
//  1. [Syncer.HandleEventBatch] : classify one webhook delivery
//     - "added" events whose parent is a task sync that single new subtask
//     - "changed" events on a task without a parent (a root task) sync all of its subtasks
//     - "changed" events on a subtask are ignored, so the writes made by a sync never trigger another one
//     - everything else (other resource types, other actions) is ignored
//
//  2. [Syncer.SyncPriority] : fetch the parent, decide, propagate
//     - [FindPriorityField] picks the first custom field named "priority" (case-insensitive)
//     - [ShouldSync] applies the configured [models.Policy]
//     - the selected enum option is written to one subtask or to every subtask of the parent
//
// # Failure Handling
//
// Failures are reported and contained. A failed fetch aborts only the event that needed it,
// a failed subtask write does not stop the remaining writes, and nothing is rolled back or retried.
// Every result is returned as data ([BatchResult], [SyncResult]) in addition to being logged.
//
// # Concurrency
//
// A Syncer holds only immutable configuration and may be shared by concurrent deliveries.
// Events inside one delivery are processed sequentially in delivery order.
//
// # Audit Recording
//
// The optional [Recorder] receives every sync and batch result. Recording errors are logged and
// never change the outcome of a sync.
package tasks
