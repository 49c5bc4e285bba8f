package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/tasks"
)

// Per-write outcomes stored in sync_records. Runs that wrote nothing store their [tasks.Outcome].
const (
	WriteUpdated = "updated"
	WriteFailed  = "failed"
)

// AuditRecorder implements tasks.Recorder using the delivery and sync record repositories.
//
// Each subtask write becomes one sync record; a run that never reached the write phase becomes a
// single record carrying its outcome.
type AuditRecorder struct {
	deliveries *DeliveryRepository
	records    *SyncRecordRepository
}

// NewAuditRecorder creates a new AuditRecorder with the given repositories
func NewAuditRecorder(deliveries *DeliveryRepository, records *SyncRecordRepository) *AuditRecorder {
	return &AuditRecorder{deliveries: deliveries, records: records}
}

// RecordSync stores the writes of one sync run. deliveryID is empty for runs started outside a webhook delivery.
func (a *AuditRecorder) RecordSync(ctx context.Context, deliveryID string, result *tasks.SyncResult) error {
	now := time.Now().UTC()

	base := models.SyncRecord{
		DeliveryID: deliveryID,
		ParentGID:  result.ParentGID,
		Policy:     result.Policy.String(),
		CreatedAt:  now,
	}
	if result.Decision != nil {
		base.FieldGID = result.Decision.FieldGID
		base.EnumValueGID = result.Decision.EnumValueGID
	}

	if len(result.Writes) == 0 {
		record := base
		record.SubtaskGID = result.TargetGID
		record.Outcome = string(result.Outcome)
		if result.Err != nil {
			record.Error = result.Err.Error()
		}
		return a.records.Create(ctx, &record)
	}

	var errs []error
	for _, write := range result.Writes {
		record := base
		record.SubtaskGID = write.SubtaskGID
		record.Outcome = WriteUpdated
		if write.Err != nil {
			record.Outcome = WriteFailed
			record.Error = write.Err.Error()
		}

		if err := a.records.Create(ctx, &record); err != nil {
			errs = append(errs, fmt.Errorf("subtask %s: %w", write.SubtaskGID, err))
		}
	}

	return errors.Join(errs...)
}

// RecordBatch stores the summary of one webhook delivery.
func (a *AuditRecorder) RecordBatch(ctx context.Context, batch *tasks.BatchResult) error {
	return a.deliveries.Create(ctx, &models.Delivery{
		ID:          batch.DeliveryID,
		EventCount:  len(batch.Events),
		Dispatched:  batch.Dispatched(),
		Failures:    batch.Failures(),
		ReceivedAt:  batch.ReceivedAt,
		CompletedAt: batch.CompletedAt,
	})
}

var _ tasks.Recorder = (*AuditRecorder)(nil)
