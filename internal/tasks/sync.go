package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

// TaskStore is the task tracker API consumed by the sync engine.
type TaskStore interface {
	// GetTask fetches a task; optFields narrows the returned properties.
	GetTask(ctx context.Context, gid string, optFields ...string) (*models.Task, error)

	// GetSubtasks lists every subtask of a parent.
	GetSubtasks(ctx context.Context, parentGID string) ([]models.Task, error)

	// UpdateTaskCustomField sets an enum custom field on a task.
	UpdateTaskCustomField(ctx context.Context, taskGID, fieldGID, enumValueGID string) error
}

// Recorder persists sync and delivery results.
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordSync(ctx context.Context, deliveryID string, result *SyncResult) error
	RecordBatch(ctx context.Context, batch *BatchResult) error
}

// SyncerOpts contains the dependencies of a [Syncer].
type SyncerOpts struct {
	Store    TaskStore
	Policy   models.Policy
	Logger   *log.Logger
	Recorder Recorder // optional
}

// Syncer copies a parent task's priority to its subtasks.
type Syncer struct {
	store    TaskStore
	policy   models.Policy
	logger   *log.Logger
	recorder Recorder
}

// NewSyncer creates a Syncer. A nil logger falls back to [shared.NewLogger].
func NewSyncer(opts SyncerOpts) *Syncer {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Syncer{
		store:    opts.Store,
		policy:   opts.Policy,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
}

// Policy returns the gate policy this Syncer applies.
func (s *Syncer) Policy() models.Policy {
	return s.policy
}

// WithPolicy returns a copy of s that applies policy instead.
func (s *Syncer) WithPolicy(policy models.Policy) *Syncer {
	clone := *s
	clone.policy = policy
	return &clone
}

// SyncPriority copies parentGID's priority to subtaskGID, or to every subtask when subtaskGID is empty.
//
// The returned error is non-nil only when the run aborted (parent or subtask list could not be fetched).
// Individual write failures are reported in [SyncResult.Writes].
func (s *Syncer) SyncPriority(ctx context.Context, parentGID, subtaskGID string) (*SyncResult, error) {
	return s.syncPriority(ctx, s.logger, "", parentGID, subtaskGID)
}

func (s *Syncer) syncPriority(ctx context.Context, logger *log.Logger, deliveryID, parentGID, subtaskGID string) (*SyncResult, error) {
	result := &SyncResult{ParentGID: parentGID, TargetGID: subtaskGID, Policy: s.policy}
	defer s.recordSync(ctx, logger, deliveryID, result)

	logger = shared.WithLogger(logger, "parent", parentGID)

	parent, err := s.store.GetTask(ctx, parentGID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("fetch parent %s: %w", parentGID, err)
		reportError(logger, "failed to fetch parent task", err)
		return result, result.Err
	}

	decision, outcome := Decide(parent, s.policy)
	switch outcome {
	case OutcomeSkippedNoPriorityField:
		result.Outcome = outcome
		logger.Info("no priority field on parent, skipping")
		return result, nil
	case OutcomeSkippedGateDeclined:
		result.Outcome = outcome
		field := FindPriorityField(parent)
		if field.EnumValue == nil {
			logger.Info("parent priority is not set, skipping")
		} else {
			logger.Info("priority gate declined, skipping", "policy", s.policy, "priority", field.Label())
		}
		return result, nil
	}

	result.Decision = decision
	logger.Debug("priority gate passed", "policy", s.policy, "priority", decision.Label)

	if err := s.propagate(ctx, logger, parentGID, decision, subtaskGID, result); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result, err
	}

	switch failures := result.Failures(); {
	case failures == 0:
		result.Outcome = OutcomeSynced
	case failures == len(result.Writes):
		result.Outcome = OutcomeFailed
	default:
		result.Outcome = OutcomePartial
	}

	return result, nil
}

// propagate writes decision to subtaskGID, or to every subtask of parentGID when subtaskGID is empty.
//
// Writes run sequentially; a failed write is recorded and the loop moves on.
func (s *Syncer) propagate(ctx context.Context, logger *log.Logger, parentGID string, decision *PriorityDecision, subtaskGID string, result *SyncResult) error {
	targets := []string{subtaskGID}

	if subtaskGID == "" {
		subtasks, err := s.store.GetSubtasks(ctx, parentGID)
		if err != nil {
			reportError(logger, "failed to list subtasks", err)
			return fmt.Errorf("list subtasks of %s: %w", parentGID, err)
		}

		targets = make([]string, 0, len(subtasks))
		for _, sub := range subtasks {
			targets = append(targets, sub.GID)
		}
		logger.Debug("fetched subtasks", "count", len(targets))
	}

	for _, gid := range targets {
		err := s.store.UpdateTaskCustomField(ctx, gid, decision.FieldGID, decision.EnumValueGID)
		result.Writes = append(result.Writes, WriteResult{SubtaskGID: gid, Err: err})

		if err != nil {
			reportError(logger, "failed to update subtask", err, "subtask", gid)
			continue
		}
		logger.Info("updated subtask to match parent", "subtask", gid, "priority", decision.Label)
	}

	return nil
}

func (s *Syncer) recordSync(ctx context.Context, logger *log.Logger, deliveryID string, result *SyncResult) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSync(ctx, deliveryID, result); err != nil {
		logger.Warn("failed to record sync result", "parent", result.ParentGID, "error", err)
	}
}

// reportError logs a task store failure; a vanished task is a warning, anything else an error.
func reportError(logger *log.Logger, msg string, err error, kv ...any) {
	kv = append(kv, "error", err)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Warn(msg, kv...)
		return
	}
	logger.Error(msg, kv...)
}
