// package formatter provides functions to export sync audit records and results to various formats (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/tasks"
)

// Format is an export format accepted by [Export].
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat maps a flag value to a [Format]; empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv, json or text)", s)
	}
}

var csvHeaders = []string{"Sequence", "CreatedAt", "DeliveryID", "ParentGID", "SubtaskGID", "FieldGID", "EnumValueGID", "Policy", "Outcome", "Error"}

// RecordsToCSV converts sync records to CSV with one row per record.
func RecordsToCSV(records []*models.SyncRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Sequence),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.DeliveryID,
			r.ParentGID,
			r.SubtaskGID,
			r.FieldGID,
			r.EnumValueGID,
			r.Policy,
			r.Outcome,
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type recordJSON struct {
	Sequence     int       `json:"sequence"`
	CreatedAt    time.Time `json:"created_at"`
	DeliveryID   string    `json:"delivery_id,omitempty"`
	ParentGID    string    `json:"parent_gid"`
	SubtaskGID   string    `json:"subtask_gid,omitempty"`
	FieldGID     string    `json:"field_gid,omitempty"`
	EnumValueGID string    `json:"enum_value_gid,omitempty"`
	Policy       string    `json:"policy"`
	Outcome      string    `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// RecordsToJSON converts sync records to an indented JSON array.
func RecordsToJSON(records []*models.SyncRecord) ([]byte, error) {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, recordJSON{
			Sequence:     r.Sequence,
			CreatedAt:    r.CreatedAt.UTC(),
			DeliveryID:   r.DeliveryID,
			ParentGID:    r.ParentGID,
			SubtaskGID:   r.SubtaskGID,
			FieldGID:     r.FieldGID,
			EnumValueGID: r.EnumValueGID,
			Policy:       r.Policy,
			Outcome:      r.Outcome,
			Error:        r.Error,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// RecordsToText converts sync records to plain text, one line per record.
func RecordsToText(records []*models.SyncRecord) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		target := r.SubtaskGID
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(&buf, "#%d %s %s -> %s [%s] %s", r.Sequence, r.CreatedAt.UTC().Format(time.RFC3339), r.ParentGID, target, r.Policy, r.Outcome)
		if r.Error != "" {
			fmt.Fprintf(&buf, ": %s", r.Error)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// Export converts records to the given format.
func Export(records []*models.SyncRecord, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RecordsToCSV(records)
	case FormatJSON:
		return RecordsToJSON(records)
	case FormatText, "":
		return RecordsToText(records), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// WriteExport exports records to path.
func WriteExport(records []*models.SyncRecord, format Format, path string) error {
	data, err := Export(records, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// SyncReport is the JSON shape of a manual sync run.
type SyncReport struct {
	Parent   string        `json:"parent"`
	Target   string        `json:"target,omitempty"`
	Policy   string        `json:"policy"`
	Outcome  string        `json:"outcome"`
	FieldGID string        `json:"field_gid,omitempty"`
	ValueGID string        `json:"enum_value_gid,omitempty"`
	Priority string        `json:"priority,omitempty"`
	Writes   []WriteReport `json:"writes"`
	Error    string        `json:"error,omitempty"`
}

// WriteReport is the JSON shape of one subtask write.
type WriteReport struct {
	Subtask string `json:"subtask"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// NewSyncReport converts a sync result into its JSON report.
func NewSyncReport(result *tasks.SyncResult) SyncReport {
	report := SyncReport{
		Parent:  result.ParentGID,
		Target:  result.TargetGID,
		Policy:  result.Policy.String(),
		Outcome: string(result.Outcome),
		Writes:  make([]WriteReport, 0, len(result.Writes)),
	}
	if d := result.Decision; d != nil {
		report.FieldGID = d.FieldGID
		report.ValueGID = d.EnumValueGID
		report.Priority = d.Label
	}
	for _, w := range result.Writes {
		wr := WriteReport{Subtask: w.SubtaskGID, OK: w.Err == nil}
		if w.Err != nil {
			wr.Error = w.Err.Error()
		}
		report.Writes = append(report.Writes, wr)
	}
	if result.Err != nil {
		report.Error = result.Err.Error()
	}
	return report
}
