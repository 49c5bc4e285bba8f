// Package models defines the task store projections, webhook payloads and audit records used by prisync.
//
// The package contains two categories of types:
//
// 1. Read-only projections of the task store, fetched fresh on every sync and never persisted:
//   - [Task] : identifier, optional parent reference and ordered custom fields
//   - [CustomField] : a custom field with its optional enum value
//   - [EnumOption] : the selected option of an enum custom field
//
// 2. Transient webhook payloads and the audit records derived from processing them:
//   - [EventBatch] / [WebhookEvent] : one inbound delivery and its events
//   - [Delivery] : a processed delivery, persisted by the audit log
//   - [SyncRecord] : a single subtask write (or a sync run that wrote nothing)
//
// [Policy] selects the priority gate and is shared by configuration, CLI flags and the sync engine.
package models
