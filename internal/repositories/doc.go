// Package repositories implements SQLite persistence for the sync audit log.
//
// Key Implementations:
//   - [DeliveryRepository] : one row per webhook delivery with event and failure counters
//   - [SyncRecordRepository] : one row per subtask write, or per sync run that wrote nothing
//   - [AuditRecorder] : adapts both repositories to the sync engine's recorder interface
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
