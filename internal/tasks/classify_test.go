package tasks

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
	tu "github.com/desertthunder/prisync/internal/testing"
)

func taskRef(gid string) *models.Resource {
	return &models.Resource{GID: gid, ResourceType: models.ResourceTask}
}

func addedEvent(subtaskGID, parentGID string) models.WebhookEvent {
	return models.WebhookEvent{
		Action:   models.ActionAdded,
		Resource: *taskRef(subtaskGID),
		Parent:   taskRef(parentGID),
	}
}

func changedEvent(gid string) models.WebhookEvent {
	return models.WebhookEvent{Action: models.ActionChanged, Resource: *taskRef(gid)}
}

func TestHandleEventBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("subtask added under critical parent", func(t *testing.T) {
		store := tu.NewFakeTaskStore().AddTask(tu.PriorityTask("P1", "F1", "V1", "Critical"))
		syncer := newTestSyncer(store, models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{addedEvent("S1", "P1")})

		want := []tu.UpdateCall{{TaskGID: "S1", FieldGID: "F1", EnumValueGID: "V1"}}
		if got := store.Updates(); !reflect.DeepEqual(got, want) {
			t.Errorf("updates = %+v, want %+v", got, want)
		}
		if batch.Events[0].Kind != EventSubtaskAdded {
			t.Errorf("expected subtask_added, got %s", batch.Events[0].Kind)
		}
		if batch.Dispatched() != 1 || batch.Failures() != 0 {
			t.Errorf("unexpected counters: dispatched=%d failures=%d", batch.Dispatched(), batch.Failures())
		}
	})

	t.Run("critical policy ignores low parent", func(t *testing.T) {
		store := tu.NewFakeTaskStore().AddTask(tu.PriorityTask("P1", "F1", "V3", "Low"))
		syncer := newTestSyncer(store, models.CriticalOnly, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{addedEvent("S1", "P1")})

		if n := len(store.Updates()); n != 0 {
			t.Errorf("expected no updates, got %d", n)
		}
		if batch.Events[0].Sync.Outcome != OutcomeSkippedGateDeclined {
			t.Errorf("expected gate skip, got %s", batch.Events[0].Sync.Outcome)
		}
	})

	t.Run("root task changed syncs every subtask", func(t *testing.T) {
		store := tu.NewFakeTaskStore().
			AddTask(tu.PriorityTask("P1", "F1", "V2", "High")).
			AddSubtasks("P1", "S1", "S2", "S3")
		syncer := newTestSyncer(store, models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{changedEvent("P1")})

		updates := store.Updates()
		if len(updates) != 3 {
			t.Fatalf("expected 3 updates, got %d", len(updates))
		}
		for _, u := range updates {
			if u.FieldGID != "F1" || u.EnumValueGID != "V2" {
				t.Errorf("unexpected update %+v", u)
			}
		}
		if batch.Events[0].Kind != EventParentChanged {
			t.Errorf("expected parent_changed, got %s", batch.Events[0].Kind)
		}
	})

	t.Run("changed event requests only the parent field", func(t *testing.T) {
		store := tu.NewFakeTaskStore().AddTask(tu.PriorityTask("P1", "F1", "V2", "High"))
		syncer := newTestSyncer(store, models.Unconditional, nil)

		syncer.HandleEventBatch(ctx, []models.WebhookEvent{changedEvent("P1")})

		opts := store.OptFields()
		if len(opts) == 0 || !reflect.DeepEqual(opts[0], []string{"parent"}) {
			t.Errorf("expected first fetch with opt_fields=parent, got %v", opts)
		}
	})

	t.Run("subtask changed is ignored", func(t *testing.T) {
		store := tu.NewFakeTaskStore().
			AddTask(tu.PriorityTask("P1", "F1", "V1", "Critical")).
			AddSubtasks("P1", "S1")
		syncer := newTestSyncer(store, models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{changedEvent("S1")})

		if n := len(store.Updates()); n != 0 {
			t.Errorf("expected no updates, got %d", n)
		}
		ev := batch.Events[0]
		if ev.Kind != EventIgnored || ev.Reason != reasonSubtaskEdit || ev.Sync != nil {
			t.Errorf("expected ignored subtask edit, got %+v", ev)
		}
	})

	t.Run("ignored events", func(t *testing.T) {
		tests := []struct {
			name   string
			event  models.WebhookEvent
			reason string
		}{
			{
				name:   "story resource",
				event:  models.WebhookEvent{Action: models.ActionAdded, Resource: models.Resource{GID: "X1", ResourceType: "story"}, Parent: taskRef("P1")},
				reason: reasonNotTask,
			},
			{
				name:   "empty resource",
				event:  models.WebhookEvent{Action: models.ActionChanged},
				reason: reasonNotTask,
			},
			{
				name:   "missing gid",
				event:  models.WebhookEvent{Action: models.ActionChanged, Resource: *taskRef("")},
				reason: reasonMissingGID,
			},
			{
				name:   "added to project",
				event:  models.WebhookEvent{Action: models.ActionAdded, Resource: *taskRef("S1"), Parent: &models.Resource{GID: "PR1", ResourceType: "project"}},
				reason: reasonNoTaskParent,
			},
			{
				name:   "added without parent",
				event:  models.WebhookEvent{Action: models.ActionAdded, Resource: *taskRef("S1")},
				reason: reasonNoTaskParent,
			},
			{
				name:   "deleted",
				event:  models.WebhookEvent{Action: "deleted", Resource: *taskRef("P1")},
				reason: reasonUnhandledAction,
			},
			{
				name:   "removed",
				event:  models.WebhookEvent{Action: "removed", Resource: *taskRef("S1"), Parent: taskRef("P1")},
				reason: reasonUnhandledAction,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := tu.NewFakeTaskStore().
					AddTask(tu.PriorityTask("P1", "F1", "V1", "Critical")).
					AddSubtasks("P1", "S1")
				syncer := newTestSyncer(store, models.Unconditional, nil)

				batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{tt.event})

				if n := len(store.Updates()); n != 0 {
					t.Errorf("expected no updates, got %d", n)
				}
				if n := len(store.GetTaskCalls()); n != 0 {
					t.Errorf("expected no fetches, got %d", n)
				}
				ev := batch.Events[0]
				if ev.Kind != EventIgnored || ev.Reason != tt.reason {
					t.Errorf("expected ignored with %q, got %s/%q", tt.reason, ev.Kind, ev.Reason)
				}
			})
		}
	})

	t.Run("failures do not abort the batch", func(t *testing.T) {
		store := tu.NewFakeTaskStore().
			AddTask(tu.PriorityTask("P1", "F1", "V1", "High")).
			AddTask(tu.PriorityTask("P2", "F2", "V2", "Low")).
			AddSubtasks("P2", "S2")
		store.GetTaskErrs["GONE"] = shared.ErrNotFound
		syncer := newTestSyncer(store, models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{
			changedEvent("GONE"),
			addedEvent("S1", "MISSING"),
			addedEvent("S9", "P1"),
			changedEvent("P2"),
		})

		if len(batch.Events) != 4 {
			t.Fatalf("expected 4 event results, got %d", len(batch.Events))
		}
		if !errors.Is(batch.Events[0].Err, shared.ErrNotFound) {
			t.Errorf("expected fetch error on event 0, got %v", batch.Events[0].Err)
		}
		if !errors.Is(batch.Events[1].Err, shared.ErrNotFound) {
			t.Errorf("expected parent error on event 1, got %v", batch.Events[1].Err)
		}

		want := []tu.UpdateCall{
			{TaskGID: "S9", FieldGID: "F1", EnumValueGID: "V1"},
			{TaskGID: "S2", FieldGID: "F2", EnumValueGID: "V2"},
		}
		if got := store.Updates(); !reflect.DeepEqual(got, want) {
			t.Errorf("updates = %+v, want %+v", got, want)
		}
		if batch.Failures() != 2 {
			t.Errorf("expected 2 failures, got %d", batch.Failures())
		}
	})

	t.Run("events are processed in order", func(t *testing.T) {
		store := tu.NewFakeTaskStore().
			AddTask(tu.PriorityTask("P1", "F1", "V1", "High")).
			AddTask(tu.PriorityTask("P2", "F1", "V2", "Low"))
		syncer := newTestSyncer(store, models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{
			addedEvent("S2", "P2"),
			addedEvent("S1", "P1"),
		})

		updates := store.Updates()
		if len(updates) != 2 || updates[0].TaskGID != "S2" || updates[1].TaskGID != "S1" {
			t.Errorf("expected S2 then S1, got %+v", updates)
		}
		for i, ev := range batch.Events {
			if ev.Index != i {
				t.Errorf("event %d carries index %d", i, ev.Index)
			}
		}
	})

	t.Run("empty delivery", func(t *testing.T) {
		syncer := newTestSyncer(tu.NewFakeTaskStore(), models.Unconditional, nil)

		batch := syncer.HandleEventBatch(ctx, nil)

		if batch.DeliveryID == "" {
			t.Error("expected a delivery id")
		}
		if len(batch.Events) != 0 || batch.Dispatched() != 0 {
			t.Errorf("expected empty batch, got %+v", batch)
		}
		if batch.CompletedAt.Before(batch.ReceivedAt) {
			t.Error("completion must not precede receipt")
		}
	})

	t.Run("records syncs under the delivery id", func(t *testing.T) {
		store := tu.NewFakeTaskStore().
			AddTask(tu.PriorityTask("P1", "F1", "V1", "High")).
			AddSubtasks("P1", "S1", "S2")
		recorder := &fakeRecorder{}
		syncer := newTestSyncer(store, models.Unconditional, recorder)

		batch := syncer.HandleEventBatch(ctx, []models.WebhookEvent{
			changedEvent("P1"),
			changedEvent("S1"),
		})

		if len(recorder.batches) != 1 || recorder.batches[0] != batch {
			t.Fatalf("expected the batch to be recorded once, got %d", len(recorder.batches))
		}
		if len(recorder.syncs) != 1 {
			t.Fatalf("expected one recorded sync, got %d", len(recorder.syncs))
		}
		if recorder.syncs[0].deliveryID != batch.DeliveryID {
			t.Errorf("expected delivery id %s, got %s", batch.DeliveryID, recorder.syncs[0].deliveryID)
		}
	})
}
