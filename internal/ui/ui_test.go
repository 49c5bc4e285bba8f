package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/tasks"
)

func TestRenderInspection(t *testing.T) {
	gates := []GateRow{
		{Policy: models.Unconditional, Outcome: tasks.OutcomeSynced},
		{Policy: models.CriticalOnly, Outcome: tasks.OutcomeSkippedGateDeclined},
	}

	t.Run("root task with priority", func(t *testing.T) {
		field := &models.CustomField{GID: "F1", Name: "Priority", DisplayValue: "High", EnumValue: &models.EnumOption{GID: "V2", Name: "High"}}
		task := &models.Task{GID: "P1", Name: "Launch", CustomFields: []models.CustomField{*field}}

		out := RenderInspection(task, field, gates)

		for _, want := range []string{"P1", "Launch", "root task", "High", "V2", "unconditional", "critical", "skipped_gate_declined"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("subtask without field", func(t *testing.T) {
		task := &models.Task{GID: "S1", Parent: &models.Resource{GID: "P1", ResourceType: models.ResourceTask}}

		out := RenderInspection(task, nil, nil)

		if !strings.Contains(out, "no priority field") || !strings.Contains(out, "(unnamed)") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if !strings.Contains(out, "P1") {
			t.Errorf("expected parent gid in output:\n%s", out)
		}
	})

	t.Run("unset field", func(t *testing.T) {
		field := &models.CustomField{GID: "F1", Name: "Priority"}
		out := RenderInspection(&models.Task{GID: "P1"}, field, nil)

		if !strings.Contains(out, "unset") {
			t.Errorf("expected unset priority, got:\n%s", out)
		}
	})
}

func TestRenderSyncResult(t *testing.T) {
	result := &tasks.SyncResult{
		ParentGID: "P1",
		Policy:    models.Unconditional,
		Outcome:   tasks.OutcomePartial,
		Decision:  &tasks.PriorityDecision{FieldGID: "F1", EnumValueGID: "V1", Label: "Critical"},
		Writes: []tasks.WriteResult{
			{SubtaskGID: "S1"},
			{SubtaskGID: "S2", Err: errors.New("status 500")},
		},
	}

	out := RenderSyncResult(result)

	for _, want := range []string{"partial", "P1", "Critical", "S1", "S2: status 500", "1 updated, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderRecords(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if out := RenderRecords(nil); !strings.Contains(out, "No sync records") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rows", func(t *testing.T) {
		records := []*models.SyncRecord{
			{Sequence: 2, ParentGID: "P1", SubtaskGID: "S2", Policy: "unconditional", Outcome: "failed", Error: strings.Repeat("x", 80), CreatedAt: time.Now()},
			{Sequence: 1, ParentGID: "P2", Policy: "critical", Outcome: "skipped_gate_declined", CreatedAt: time.Now()},
		}

		out := RenderRecords(records)

		for _, want := range []string{"PARENT", "P1", "S2", "failed", "P2", "skipped_gate_declined", "…"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Contains(out, strings.Repeat("x", 80)) {
			t.Error("expected long errors to be truncated")
		}
	})
}

func TestPaletteOutcome(t *testing.T) {
	p := Styles()
	for _, outcome := range []string{"synced", "updated", "failed", "partial", ""} {
		if got := p.Outcome(outcome); !strings.Contains(got, outcome) {
			t.Errorf("Outcome(%q) = %q", outcome, got)
		}
	}
}

func TestRenderDeliveries(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if out := RenderDeliveries(nil); !strings.Contains(out, "No deliveries") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rows", func(t *testing.T) {
		at := time.Now()
		out := RenderDeliveries([]*models.Delivery{
			{ID: "d-1", Sequence: 1, EventCount: 4, Dispatched: 2, Failures: 1, ReceivedAt: at, CompletedAt: at.Add(1500 * time.Millisecond)},
		})

		for _, want := range []string{"RECEIVED", "d-1", "4", "1.5s"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})
}
