package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/tasks"
)

func sampleRecords() []*models.SyncRecord {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.SyncRecord{
		{Sequence: 2, CreatedAt: at, DeliveryID: "d-1", ParentGID: "P1", SubtaskGID: "S2", FieldGID: "F1", EnumValueGID: "V1", Policy: "unconditional", Outcome: "failed", Error: "status 500, retry later"},
		{Sequence: 1, CreatedAt: at, ParentGID: "P2", Policy: "critical", Outcome: "skipped_gate_declined"},
	}
}

func TestExporters(t *testing.T) {
	t.Run("RecordsToCSV", func(t *testing.T) {
		data, err := RecordsToCSV(sampleRecords())
		if err != nil {
			t.Fatalf("RecordsToCSV failed: %v", err)
		}

		rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != strings.Join(csvHeaders, ",") {
			t.Errorf("unexpected headers %v", rows[0])
		}
		if rows[1][9] != "status 500, retry later" {
			t.Errorf("expected quoted error to round-trip, got %q", rows[1][9])
		}
		if rows[1][1] != "2025-03-01T12:00:00Z" {
			t.Errorf("unexpected timestamp %q", rows[1][1])
		}
	})

	t.Run("RecordsToJSON", func(t *testing.T) {
		data, err := RecordsToJSON(sampleRecords())
		if err != nil {
			t.Fatalf("RecordsToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["parent_gid"] != "P1" {
			t.Errorf("unexpected JSON %s", data)
		}
		if _, ok := decoded[1]["subtask_gid"]; ok {
			t.Error("expected empty subtask to be omitted")
		}
	})

	t.Run("RecordsToJSON empty is an array", func(t *testing.T) {
		data, err := RecordsToJSON(nil)
		if err != nil {
			t.Fatalf("RecordsToJSON failed: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("expected [], got %s", data)
		}
	})

	t.Run("RecordsToText", func(t *testing.T) {
		out := string(RecordsToText(sampleRecords()))

		if !strings.Contains(out, "#2 2025-03-01T12:00:00Z P1 -> S2 [unconditional] failed: status 500") {
			t.Errorf("unexpected first line:\n%s", out)
		}
		if !strings.Contains(out, "P2 -> - [critical] skipped_gate_declined\n") {
			t.Errorf("unexpected second line:\n%s", out)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "csv", want: FormatCSV},
		{in: "json", want: FormatJSON},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("writes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.csv")

		if err := WriteExport(sampleRecords(), FormatCSV, path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "Sequence,") {
			t.Errorf("unexpected file contents %q", data)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "history.csv")
		if err := WriteExport(sampleRecords(), FormatCSV, path); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := WriteExport(nil, Format("xml"), filepath.Join(t.TempDir(), "x")); err == nil {
			t.Fatal("expected error for unknown format")
		}
	})
}

func TestNewSyncReport(t *testing.T) {
	result := &tasks.SyncResult{
		ParentGID: "P1",
		Policy:    models.CriticalOnly,
		Outcome:   tasks.OutcomePartial,
		Decision:  &tasks.PriorityDecision{FieldGID: "F1", EnumValueGID: "V1", Label: "Critical"},
		Writes: []tasks.WriteResult{
			{SubtaskGID: "S1"},
			{SubtaskGID: "S2", Err: errors.New("boom")},
		},
	}

	report := NewSyncReport(result)

	if report.Policy != "critical" || report.Outcome != "partial" || report.Priority != "Critical" {
		t.Errorf("unexpected report header: %+v", report)
	}
	if len(report.Writes) != 2 || !report.Writes[0].OK || report.Writes[1].OK || report.Writes[1].Error != "boom" {
		t.Errorf("unexpected writes: %+v", report.Writes)
	}
}
