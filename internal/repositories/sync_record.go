package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

const syncRecordColumns = `id, sequence, delivery_id, parent_gid, subtask_gid, field_gid, enum_value_gid, policy, outcome, error, created_at`

// SyncRecordRepository persists the sync audit log.
type SyncRecordRepository struct {
	db *sql.DB
}

// NewSyncRecordRepository creates a new SyncRecordRepository with the given database connection
func NewSyncRecordRepository(db *sql.DB) *SyncRecordRepository {
	return &SyncRecordRepository{db: db}
}

// Create inserts a record with a generated ID and sequence.
func (r *SyncRecordRepository) Create(ctx context.Context, record *models.SyncRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_records")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	record.ID = shared.GenerateID()
	record.Sequence = sequence
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync_records (` + syncRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Sequence,
		nullString(record.DeliveryID),
		record.ParentGID,
		nullString(record.SubtaskGID),
		nullString(record.FieldGID),
		nullString(record.EnumValueGID),
		record.Policy,
		record.Outcome,
		nullString(record.Error),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync record: %w", err)
	}

	return nil
}

// List retrieves records, newest first.
//
// Supported criteria: "parent_gid" (string), "delivery_id" (string), "outcome" (string), "limit" (int).
func (r *SyncRecordRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE 1 = 1`
	args := []any{}

	for _, column := range []string{"parent_gid", "delivery_id", "outcome"} {
		if value, ok := criteria[column].(string); ok && value != "" {
			query += " AND " + column + " = ?"
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"
	query, args = limitClause(query, args, criteria)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		record, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// ListByParent retrieves every record for a parent task, newest first.
func (r *SyncRecordRepository) ListByParent(ctx context.Context, parentGID string) ([]*models.SyncRecord, error) {
	return r.List(ctx, map[string]any{"parent_gid": parentGID})
}

// ListByDelivery retrieves every record written while processing a delivery, newest first.
func (r *SyncRecordRepository) ListByDelivery(ctx context.Context, deliveryID string) ([]*models.SyncRecord, error) {
	return r.List(ctx, map[string]any{"delivery_id": deliveryID})
}

func scanSyncRecord(row scanner) (*models.SyncRecord, error) {
	var (
		record                                               models.SyncRecord
		deliveryID, subtaskGID, fieldGID, enumValueGID, msg sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.Sequence,
		&deliveryID,
		&record.ParentGID,
		&subtaskGID,
		&fieldGID,
		&enumValueGID,
		&record.Policy,
		&record.Outcome,
		&msg,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync record: %w", err)
	}

	record.DeliveryID = deliveryID.String
	record.SubtaskGID = subtaskGID.String
	record.FieldGID = fieldGID.String
	record.EnumValueGID = enumValueGID.String
	record.Error = msg.String

	return &record, nil
}
