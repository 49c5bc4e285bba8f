package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/tasks"
)

// GateRow is the gate result for one policy.
type GateRow struct {
	Policy  models.Policy
	Outcome tasks.Outcome
}

// RenderInspection describes a task's priority field and what each policy would do with it.
func RenderInspection(task *models.Task, field *models.CustomField, gates []GateRow) string {
	var b strings.Builder

	name := task.Name
	if name == "" {
		name = "(unnamed)"
	}
	b.WriteString(styles.Title(fmt.Sprintf("Task %s: %s", task.GID, name)))
	b.WriteString("\n")

	if task.IsRoot() {
		b.WriteString("Parent:   none (root task)\n")
	} else {
		b.WriteString(fmt.Sprintf("Parent:   %s %s\n", task.Parent.GID, styles.Help("(subtask edits never trigger a sync)")))
	}

	switch {
	case field == nil:
		b.WriteString("Priority: " + styles.Warn("no priority field") + "\n")
	case field.EnumValue == nil:
		b.WriteString(fmt.Sprintf("Priority: %s %s\n", styles.Warn("unset"), styles.Help("field "+field.GID)))
	default:
		b.WriteString(fmt.Sprintf("Priority: %s %s\n", styles.OK(field.Label()), styles.Help(fmt.Sprintf("field %s, value %s", field.GID, field.EnumValue.GID))))
	}

	b.WriteString("\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("POLICY", "RESULT")
	for _, g := range gates {
		t.Row(g.Policy.String(), string(g.Outcome))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		base := lipgloss.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return base.Bold(true)
		}
		if col == 1 && row >= 0 && row < len(gates) {
			return styles.outcomeStyle(string(gates[row].Outcome)).Padding(0, 1)
		}
		return base
	})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderSyncResult summarises one manual sync run.
func RenderSyncResult(result *tasks.SyncResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s (policy %s)\n", styles.Outcome(string(result.Outcome)), result.ParentGID, result.Policy))
	if result.Decision != nil {
		b.WriteString(fmt.Sprintf("Priority: %s\n", result.Decision.Label))
	}

	for _, w := range result.Writes {
		if w.Err != nil {
			b.WriteString(fmt.Sprintf("  %s %s: %v\n", styles.Error("✗"), w.SubtaskGID, w.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.OK("✓"), w.SubtaskGID))
	}

	if result.Err != nil {
		b.WriteString(styles.Error("Error: "+result.Err.Error()) + "\n")
	}

	if len(result.Writes) > 0 {
		b.WriteString(fmt.Sprintf("%d updated, %d failed\n", result.Updated(), result.Failures()))
	}
	return b.String()
}

// RenderRecords formats audit log records as a table, newest first.
func RenderRecords(records []*models.SyncRecord) string {
	if len(records) == 0 {
		return styles.Help("No sync records found.") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TIME", "PARENT", "SUBTASK", "POLICY", "OUTCOME", "ERROR")

	for _, r := range records {
		t.Row(
			fmt.Sprintf("%d", r.Sequence),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.ParentGID,
			orDash(r.SubtaskGID),
			r.Policy,
			r.Outcome,
			truncate(r.Error, 48),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		base := lipgloss.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return base.Bold(true)
		}
		if col == 5 && row >= 0 && row < len(records) {
			return styles.outcomeStyle(records[row].Outcome).Padding(0, 1)
		}
		return base
	})

	return t.Render() + "\n"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RenderDeliveries formats webhook delivery summaries as a table, newest first.
func RenderDeliveries(deliveries []*models.Delivery) string {
	if len(deliveries) == 0 {
		return styles.Help("No deliveries recorded.") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "RECEIVED", "ID", "EVENTS", "DISPATCHED", "FAILURES", "TOOK")

	for _, d := range deliveries {
		t.Row(
			fmt.Sprintf("%d", d.Sequence),
			d.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			d.ID,
			fmt.Sprintf("%d", d.EventCount),
			fmt.Sprintf("%d", d.Dispatched),
			fmt.Sprintf("%d", d.Failures),
			d.CompletedAt.Sub(d.ReceivedAt).Round(time.Millisecond).String(),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		base := lipgloss.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return base.Bold(true)
		}
		if col == 5 && row >= 0 && row < len(deliveries) && deliveries[row].Failures > 0 {
			return styles.err.Padding(0, 1)
		}
		return base
	})

	return t.Render() + "\n"
}
