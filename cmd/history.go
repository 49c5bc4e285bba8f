package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/prisync/internal/formatter"
	"github.com/desertthunder/prisync/internal/repositories"
	"github.com/desertthunder/prisync/internal/ui"
	"github.com/urfave/cli/v3"
)

// History lists audit log records, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openAuditForRead(ctx)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	records, err := repositories.NewSyncRecordRepository(db).List(ctx, map[string]any{
		"parent_gid":  cmd.String("parent"),
		"delivery_id": cmd.String("delivery"),
		"outcome":     cmd.String("outcome"),
		"limit":       int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if !cmd.IsSet("format") && !cmd.IsSet("output") {
		return r.writePlain("%s", ui.RenderRecords(records))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(records, format, path); err != nil {
			return err
		}
		r.logger.Info("exported sync records", "count", len(records), "path", path, "format", format)
		return nil
	}

	data, err := formatter.Export(records, format)
	if err != nil {
		return fmt.Errorf("failed to export records: %w", err)
	}
	return r.writeBytes(data)
}

type deliveryJSON struct {
	ID          string `json:"id"`
	Sequence    int    `json:"sequence"`
	EventCount  int    `json:"event_count"`
	Dispatched  int    `json:"dispatched"`
	Failures    int    `json:"failures"`
	ReceivedAt  string `json:"received_at"`
	CompletedAt string `json:"completed_at"`
}

// Deliveries lists recorded webhook deliveries, newest first.
func (r *Runner) Deliveries(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openAuditForRead(ctx)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	deliveries, err := repositories.NewDeliveryRepository(db).List(ctx, map[string]any{"limit": int(cmd.Int("limit"))})
	if err != nil {
		return err
	}

	if !cmd.Bool("json") {
		return r.writePlain("%s", ui.RenderDeliveries(deliveries))
	}

	out := make([]deliveryJSON, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, deliveryJSON{
			ID:          d.ID,
			Sequence:    d.Sequence,
			EventCount:  d.EventCount,
			Dispatched:  d.Dispatched,
			Failures:    d.Failures,
			ReceivedAt:  d.ReceivedAt.UTC().Format(timeLayout),
			CompletedAt: d.CompletedAt.UTC().Format(timeLayout),
		})
	}
	return r.writeJSON(out, true)
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
