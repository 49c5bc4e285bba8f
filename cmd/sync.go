package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/prisync/internal/formatter"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
	"github.com/desertthunder/prisync/internal/tasks"
	"github.com/desertthunder/prisync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync copies a parent's priority to one or all of its subtasks.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	parent := cmd.StringArg("parent")
	if parent == "" {
		return fmt.Errorf("%w: parent task gid", shared.ErrMissingArgument)
	}

	if err := r.requireStore(); err != nil {
		return err
	}

	policy, err := r.policy(cmd)
	if err != nil {
		return err
	}

	var recorder tasks.Recorder
	if !cmd.Bool("no-record") {
		db, rec, err := r.openAudit(ctx)
		if err != nil {
			return err
		}
		defer r.closeDB(db)
		recorder = rec
	}

	result, syncErr := r.newSyncer(policy, recorder).SyncPriority(ctx, parent, cmd.String("subtask"))

	if cmd.Bool("json") {
		if err := r.writeJSON(formatter.NewSyncReport(result), true); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", ui.RenderSyncResult(result)); err != nil {
		return err
	}

	if syncErr != nil {
		return syncErr
	}
	if n := result.Failures(); n > 0 {
		return fmt.Errorf("%w: %d of %d subtask updates failed", shared.ErrServiceError, n, len(result.Writes))
	}
	return nil
}

type inspection struct {
	Task     string                   `json:"task"`
	Name     string                   `json:"name,omitempty"`
	Parent   string                   `json:"parent,omitempty"`
	Field    *models.CustomField      `json:"priority_field,omitempty"`
	Gates    map[string]tasks.Outcome `json:"gates"`
	Decision *tasks.PriorityDecision  `json:"decision,omitempty"`
}

// Inspect fetches a task and reports what each policy would do with it. Nothing is written.
func (r *Runner) Inspect(ctx context.Context, cmd *cli.Command) error {
	gid := cmd.StringArg("task")
	if gid == "" {
		return fmt.Errorf("%w: task gid", shared.ErrMissingArgument)
	}

	if err := r.requireStore(); err != nil {
		return err
	}

	task, err := r.store.GetTask(ctx, gid)
	if err != nil {
		return fmt.Errorf("failed to fetch task: %w", err)
	}

	field := tasks.FindPriorityField(task)
	gates := make([]ui.GateRow, 0, 2)
	report := inspection{Task: task.GID, Name: task.Name, Field: field, Gates: map[string]tasks.Outcome{}}
	if task.Parent != nil {
		report.Parent = task.Parent.GID
	}

	for _, policy := range []models.Policy{models.Unconditional, models.CriticalOnly} {
		decision, outcome := tasks.Decide(task, policy)
		gates = append(gates, ui.GateRow{Policy: policy, Outcome: outcome})
		report.Gates[policy.String()] = outcome
		if decision != nil {
			report.Decision = decision
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.writePlain("%s", ui.RenderInspection(task, field, gates))
}
