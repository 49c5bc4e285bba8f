package tasks

import (
	"strings"

	"github.com/desertthunder/prisync/internal/models"
)

const (
	priorityFieldName = "priority"
	criticalLabel     = "critical"
)

// PriorityDecision is the field/option pair written to subtasks.
type PriorityDecision struct {
	FieldGID     string `json:"field_gid"`
	EnumValueGID string `json:"enum_value_gid"`
	Label        string `json:"label"`
}

// FindPriorityField returns the task's priority field, or nil when it has none.
//
// Names are compared lower-cased. If several fields match, the first in the task's order wins.
func FindPriorityField(task *models.Task) *models.CustomField {
	if task == nil {
		return nil
	}
	for i := range task.CustomFields {
		if strings.ToLower(task.CustomFields[i].Name) == priorityFieldName {
			return &task.CustomFields[i]
		}
	}
	return nil
}

// ShouldSync reports whether field's current value may be propagated under policy.
//
// A missing field or a cleared value never syncs.
func ShouldSync(field *models.CustomField, policy models.Policy) bool {
	if field == nil || field.EnumValue == nil {
		return false
	}

	switch policy {
	case models.Unconditional:
		return true
	case models.CriticalOnly:
		return strings.ToLower(field.Label()) == criticalLabel
	default:
		return false
	}
}

// Decide runs the extractor and the gate against task.
//
// The decision is nil whenever the outcome is a skip.
func Decide(task *models.Task, policy models.Policy) (*PriorityDecision, Outcome) {
	field := FindPriorityField(task)
	if field == nil {
		return nil, OutcomeSkippedNoPriorityField
	}
	if !ShouldSync(field, policy) {
		return nil, OutcomeSkippedGateDeclined
	}
	return &PriorityDecision{
		FieldGID:     field.GID,
		EnumValueGID: field.EnumValue.GID,
		Label:        field.Label(),
	}, OutcomeSynced
}
