package tasks

import (
	"testing"

	"github.com/desertthunder/prisync/internal/models"
)

func enumField(gid, name, valueGID, label string) models.CustomField {
	f := models.CustomField{GID: gid, Name: name}
	if valueGID != "" {
		f.DisplayValue = label
		f.EnumValue = &models.EnumOption{GID: valueGID, Name: label}
	}
	return f
}

func TestFindPriorityField(t *testing.T) {
	t.Run("matches any case", func(t *testing.T) {
		for _, name := range []string{"Priority", "PRIORITY", "priority", "pRiOrItY"} {
			task := &models.Task{GID: "P1", CustomFields: []models.CustomField{
				enumField("F0", "Effort", "E1", "Small"),
				enumField("F1", name, "V1", "High"),
			}}

			field := FindPriorityField(task)
			if field == nil {
				t.Fatalf("expected field named %q to be found", name)
			}
			if field.GID != "F1" {
				t.Errorf("expected F1 for %q, got %s", name, field.GID)
			}
		}
	})

	t.Run("no priority field", func(t *testing.T) {
		task := &models.Task{GID: "P1", CustomFields: []models.CustomField{enumField("F0", "Effort", "E1", "Small")}}
		if field := FindPriorityField(task); field != nil {
			t.Errorf("expected nil, got %+v", field)
		}
	})

	t.Run("no custom fields", func(t *testing.T) {
		if field := FindPriorityField(&models.Task{GID: "P1"}); field != nil {
			t.Errorf("expected nil, got %+v", field)
		}
	})

	t.Run("nil task", func(t *testing.T) {
		if field := FindPriorityField(nil); field != nil {
			t.Errorf("expected nil, got %+v", field)
		}
	})

	t.Run("near-miss names do not match", func(t *testing.T) {
		task := &models.Task{GID: "P1", CustomFields: []models.CustomField{
			enumField("F1", "Priority Level", "V1", "High"),
			enumField("F2", " priority", "V2", "High"),
		}}
		if field := FindPriorityField(task); field != nil {
			t.Errorf("expected no match, got %s", field.GID)
		}
	})

	t.Run("first match wins", func(t *testing.T) {
		task := &models.Task{GID: "P1", CustomFields: []models.CustomField{
			enumField("F1", "priority", "V1", "Low"),
			enumField("F2", "Priority", "V2", "Critical"),
		}}
		if field := FindPriorityField(task); field == nil || field.GID != "F1" {
			t.Errorf("expected first field F1, got %+v", field)
		}
	})
}

func TestShouldSync(t *testing.T) {
	set := enumField("F1", "Priority", "V1", "High")
	critical := enumField("F1", "Priority", "V1", "Critical")
	shouting := enumField("F1", "Priority", "V1", "CRITICAL")
	cleared := enumField("F1", "Priority", "", "")
	enumOnly := models.CustomField{GID: "F1", Name: "Priority", EnumValue: &models.EnumOption{GID: "V1", Name: "Critical"}}

	tc := []struct {
		name   string
		field  *models.CustomField
		policy models.Policy
		want   bool
	}{
		{name: "unconditional with value", field: &set, policy: models.Unconditional, want: true},
		{name: "unconditional cleared", field: &cleared, policy: models.Unconditional, want: false},
		{name: "unconditional nil field", field: nil, policy: models.Unconditional, want: false},
		{name: "critical label", field: &critical, policy: models.CriticalOnly, want: true},
		{name: "critical label upper case", field: &shouting, policy: models.CriticalOnly, want: true},
		{name: "critical from enum name", field: &enumOnly, policy: models.CriticalOnly, want: true},
		{name: "critical policy high label", field: &set, policy: models.CriticalOnly, want: false},
		{name: "critical policy cleared", field: &cleared, policy: models.CriticalOnly, want: false},
		{name: "critical policy nil field", field: nil, policy: models.CriticalOnly, want: false},
		{name: "unknown policy", field: &critical, policy: models.Policy(42), want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSync(tt.field, tt.policy); got != tt.want {
				t.Errorf("ShouldSync() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		task := &models.Task{GID: "P1", CustomFields: []models.CustomField{enumField("F1", "Priority", "V1", "Critical")}}
		decision, outcome := Decide(task, models.CriticalOnly)
		if outcome != OutcomeSynced {
			t.Fatalf("expected synced outcome, got %s", outcome)
		}
		if decision.FieldGID != "F1" || decision.EnumValueGID != "V1" || decision.Label != "Critical" {
			t.Errorf("unexpected decision: %+v", decision)
		}
	})

	t.Run("no field", func(t *testing.T) {
		decision, outcome := Decide(&models.Task{GID: "P1"}, models.Unconditional)
		if decision != nil || outcome != OutcomeSkippedNoPriorityField {
			t.Errorf("expected no-field skip, got %+v %s", decision, outcome)
		}
		if !outcome.Skipped() {
			t.Error("expected outcome to be a skip")
		}
	})

	t.Run("gate declined", func(t *testing.T) {
		task := &models.Task{GID: "P1", CustomFields: []models.CustomField{enumField("F1", "Priority", "V1", "Low")}}
		decision, outcome := Decide(task, models.CriticalOnly)
		if decision != nil || outcome != OutcomeSkippedGateDeclined {
			t.Errorf("expected gate skip, got %+v %s", decision, outcome)
		}
	})
}
