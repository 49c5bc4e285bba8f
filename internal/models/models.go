// package models defines the data model for the priority sync bridge
package models

import (
	"errors"
	"fmt"
	"time"
)

// Resource types and webhook actions the sync engine understands.
const (
	ResourceTask = "task"

	ActionAdded   = "added"
	ActionChanged = "changed"
)

// Resource is a compact reference to an object in the task store.
type Resource struct {
	GID          string `json:"gid"`
	ResourceType string `json:"resource_type,omitempty"`
	Name         string `json:"name,omitempty"`
}

// IsTask reports whether the reference points at a task.
func (r *Resource) IsTask() bool {
	return r != nil && r.ResourceType == ResourceTask
}

// EnumOption is the selected option of an enum custom field.
type EnumOption struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// CustomField is a custom field value attached to a task.
//
// A nil EnumValue means the field is unset.
type CustomField struct {
	GID          string      `json:"gid"`
	Name         string      `json:"name"`
	DisplayValue string      `json:"display_value,omitempty"`
	EnumValue    *EnumOption `json:"enum_value"`
}

// Label returns the human-readable value of the field.
//
// display_value is preferred; the enum option name covers responses that omit it.
func (f CustomField) Label() string {
	if f.DisplayValue != "" {
		return f.DisplayValue
	}
	if f.EnumValue != nil {
		return f.EnumValue.Name
	}
	return ""
}

// Task is a read-only projection of a task in the task store.
type Task struct {
	GID          string        `json:"gid"`
	Name         string        `json:"name,omitempty"`
	Parent       *Resource     `json:"parent"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// IsRoot reports whether the task has no parent.
func (t Task) IsRoot() bool {
	return t.Parent == nil
}

// EventChange describes which field of a resource changed.
type EventChange struct {
	Field  string `json:"field"`
	Action string `json:"action"`
}

// WebhookEvent is one notification inside a webhook delivery.
type WebhookEvent struct {
	Action    string       `json:"action"`
	Resource  Resource     `json:"resource"`
	Parent    *Resource    `json:"parent"`
	User      *Resource    `json:"user,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
	Change    *EventChange `json:"change,omitempty"`
}

// EventBatch is the body of a webhook delivery.
type EventBatch struct {
	Events []WebhookEvent `json:"events"`
}

// Delivery is a processed webhook delivery as stored in the audit log.
type Delivery struct {
	ID          string
	Sequence    int
	EventCount  int
	Dispatched  int
	Failures    int
	ReceivedAt  time.Time
	CompletedAt time.Time
}

// Validate checks the fields required for persistence.
func (d *Delivery) Validate() error {
	if d.ID == "" {
		return errors.New("delivery id is required")
	}
	if d.EventCount < 0 || d.Dispatched < 0 || d.Failures < 0 {
		return fmt.Errorf("delivery %s has negative counters", d.ID)
	}
	if d.ReceivedAt.IsZero() {
		return fmt.Errorf("delivery %s is missing received_at", d.ID)
	}
	return nil
}

// SyncRecord is one row of the sync audit log.
type SyncRecord struct {
	ID           string
	Sequence     int
	DeliveryID   string // empty for syncs started from the CLI
	ParentGID    string
	SubtaskGID   string // empty when the run wrote nothing
	FieldGID     string
	EnumValueGID string
	Policy       string
	Outcome      string
	Error        string
	CreatedAt    time.Time
}

// Validate checks the fields required for persistence.
func (r *SyncRecord) Validate() error {
	if r.ParentGID == "" {
		return errors.New("sync record parent gid is required")
	}
	if r.Outcome == "" {
		return errors.New("sync record outcome is required")
	}
	if r.Policy == "" {
		return errors.New("sync record policy is required")
	}
	return nil
}
