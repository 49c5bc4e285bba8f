// Package services implements the task store client used by the sync engine.
//
// # Asana Implementation
//
// [AsanaService] talks to the Asana REST API (https://app.asana.com/api/1.0 by default) with a
// personal access token. The token is attached by an [oauth2.Transport] built from a static token
// source, so no refresh or authorization flow is involved.
//
// The three operations consumed by the sync engine map to:
//   - [AsanaService.GetTask] : GET /tasks/{gid}, optionally narrowed with opt_fields
//   - [AsanaService.GetSubtasks] : GET /tasks/{gid}/subtasks, following next_page offsets
//   - [AsanaService.UpdateTaskCustomField] : PUT /tasks/{gid} with {"data":{"custom_fields":{field: option}}}
//
// # Rate Limiting
//
// All requests share one [rate.Limiter]. Deliveries may be processed concurrently, and the limiter is
// what keeps their combined traffic under the configured requests-per-minute budget.
//
// # Error Handling
//
// Non-success responses are returned as [*APIError], which unwraps to:
//   - [shared.ErrNotFound] : status 404, the task no longer exists
//   - [shared.ErrServiceError] : any other non-success status
//
// Transport and decoding failures are wrapped with [shared.ErrServiceError] as well. Nothing is retried.
package services
