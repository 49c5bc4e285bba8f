package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

const deliveryColumns = `id, sequence, event_count, dispatched, failures, received_at, completed_at`

// DeliveryRepository persists one row per webhook delivery.
type DeliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a new DeliveryRepository with the given database connection
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create inserts a delivery, assigning its sequence. An empty ID is filled with a new UUID.
func (r *DeliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = shared.GenerateID()
	}

	if err := delivery.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "deliveries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	delivery.Sequence = sequence

	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		delivery.ID,
		delivery.Sequence,
		delivery.EventCount,
		delivery.Dispatched,
		delivery.Failures,
		delivery.ReceivedAt,
		delivery.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}

	return nil
}

// Get retrieves a delivery by ID
func (r *DeliveryRepository) Get(ctx context.Context, id string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = ?`

	delivery, err := scanDelivery(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery %s: %w", id, shared.ErrNotFound)
	}
	return delivery, err
}

// List retrieves deliveries, newest first. Supported criteria: "limit" (int).
func (r *DeliveryRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries ORDER BY sequence DESC`
	query, args := limitClause(query, nil, criteria)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return deliveries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(&d.ID, &d.Sequence, &d.EventCount, &d.Dispatched, &d.Failures, &d.ReceivedAt, &d.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}
