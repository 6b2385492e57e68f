package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marfleetn/chatCAT/internal/models"
)

func sampleResults() []models.SearchResult {
	return []models.SearchResult{
		{
			Record: models.Record{
				ID:           1,
				Platform:     "claude",
				Timestamp:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
				UserText:     "explain, with \"commas\"",
				ResponseText: "sure",
				Notes:        "keep",
				Tags:         []string{"work", "reference"},
			},
			Relevance: 3,
		},
		{
			Record: models.Record{
				ID:           2,
				Platform:     "chatgpt",
				Timestamp:    time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
				UserText:     "q2",
				ResponseText: "a2",
			},
			Relevance: 1,
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"XLSX", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleResults()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][4] != "user_message" {
		t.Errorf("header: %v", rows[0])
	}
	if rows[1][1] != "claude" || rows[1][4] != `explain, with "commas"` {
		t.Errorf("row 1: %v", rows[1])
	}
	if rows[1][7] != "work,reference" {
		t.Errorf("tags column: %q", rows[1][7])
	}
	if rows[2][8] != "1" {
		t.Errorf("relevance column: %q", rows[2][8])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,platform") {
		t.Errorf("empty export should still carry the header: %q", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, sampleResults()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Chats")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "claude" || rows[2][1] != "chatgpt" {
		t.Errorf("platform column: %v, %v", rows[1], rows[2])
	}
}

func TestFormatMetadata(t *testing.T) {
	if FormatCSV.ContentType() != "text/csv" || FormatCSV.Extension() != "csv" {
		t.Error("csv metadata")
	}
	if !strings.Contains(FormatXLSX.ContentType(), "spreadsheet") || FormatXLSX.Extension() != "xlsx" {
		t.Error("xlsx metadata")
	}
}
