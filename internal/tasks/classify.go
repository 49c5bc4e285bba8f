package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

// Reasons attached to ignored events.
const (
	reasonNotTask         = "resource is not a task"
	reasonMissingGID      = "resource has no gid"
	reasonNoTaskParent    = "added without a task parent"
	reasonSubtaskEdit     = "subtask edit"
	reasonUnhandledAction = "unhandled action"
)

// HandleEventBatch classifies and processes every event of one webhook delivery, in order.
//
// The caller must have answered any handshake already. Failures are captured per event and never
// stop the remaining events.
func (s *Syncer) HandleEventBatch(ctx context.Context, events []models.WebhookEvent) *BatchResult {
	batch := &BatchResult{
		DeliveryID: shared.GenerateID(),
		ReceivedAt: time.Now().UTC(),
		Events:     make([]EventResult, 0, len(events)),
	}

	logger := shared.WithLogger(s.logger, "delivery", batch.DeliveryID)
	logger.Info("processing webhook delivery", "events", len(events), "policy", s.policy)

	for i, event := range events {
		batch.Events = append(batch.Events, s.classify(ctx, shared.WithLogger(logger, "event", i), batch.DeliveryID, i, event))
	}

	batch.CompletedAt = time.Now().UTC()

	if s.recorder != nil {
		if err := s.recorder.RecordBatch(ctx, batch); err != nil {
			logger.Warn("failed to record delivery", "error", err)
		}
	}

	logger.Info("webhook delivery processed", "dispatched", batch.Dispatched(), "failures", batch.Failures())
	return batch
}

func (s *Syncer) classify(ctx context.Context, logger *log.Logger, deliveryID string, index int, event models.WebhookEvent) EventResult {
	gid := event.Resource.GID
	result := EventResult{
		Index:       index,
		Action:      event.Action,
		ResourceGID: gid,
		Kind:        EventIgnored,
	}

	ignore := func(reason string) EventResult {
		result.Reason = reason
		logger.Debug("ignoring event", "action", event.Action, "resource", gid, "reason", reason)
		return result
	}

	if !event.Resource.IsTask() {
		return ignore(reasonNotTask)
	}
	if gid == "" {
		return ignore(reasonMissingGID)
	}

	switch event.Action {
	case models.ActionAdded:
		if !event.Parent.IsTask() || event.Parent.GID == "" {
			return ignore(reasonNoTaskParent)
		}

		result.Kind = EventSubtaskAdded
		logger.Info("subtask added to parent, syncing priority", "subtask", gid, "parent", event.Parent.GID)
		result.Sync, result.Err = s.syncPriority(ctx, logger, deliveryID, event.Parent.GID, gid)

	case models.ActionChanged:
		task, err := s.store.GetTask(ctx, gid, "parent")
		if err != nil {
			result.Err = fmt.Errorf("fetch changed task %s: %w", gid, err)
			reportError(logger, "failed to fetch changed task", err, "task", gid)
			return result
		}

		// Writes to subtasks fire their own "changed" events; only root tasks may start a sync.
		if !task.IsRoot() {
			return ignore(reasonSubtaskEdit)
		}

		result.Kind = EventParentChanged
		logger.Info("parent task changed, syncing priority", "parent", gid)
		result.Sync, result.Err = s.syncPriority(ctx, logger, deliveryID, gid, "")

	default:
		return ignore(reasonUnhandledAction)
	}

	return result
}
