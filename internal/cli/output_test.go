package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/marfleetn/chatCAT/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Total:       1,
		SearchTerms: []string{"recursion"},
		Results: []models.SearchResult{
			{
				Record: models.Record{
					ID:           7,
					Platform:     "claude",
					Timestamp:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
					UserText:     "explain recursion",
					ResponseText: "Recursion is a function calling itself.",
					Tags:         []string{"tutorial"},
					Notes:        "good explanation",
				},
				Relevance: 2,
			},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v, %v", f, err)
	}
	if f, err := ParseOutputFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v, %v", f, err)
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSearchResultsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 1 results",
		"recursion",
		"#7 [claude]",
		"relevance: 2",
		"Tags: tutorial",
		"Notes: good explanation",
		"Q: explain recursion",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if decoded.Total != 1 || len(decoded.Results) != 1 || decoded.Results[0].ID != 7 {
		t.Errorf("round trip: %+v", decoded)
	}
}

func TestWriteStatsText(t *testing.T) {
	min := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stats := &models.Stats{
		TotalChats:     3,
		ByPlatform:     map[string]int64{"claude": 2, "chatgpt": 1},
		DateRange:      models.DateRange{Min: &min, Max: &max},
		DiskUsageBytes: 4096,
	}
	var buf bytes.Buffer
	if err := WriteStats(&buf, stats, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Catalogued chats: 3", "claude", "Database size: 4096"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
