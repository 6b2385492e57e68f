// Package cli provides output formatting for the chatcat command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/marfleetn/chatCAT/internal/models"
	"github.com/marfleetn/chatCAT/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results", response.Total)
	if len(response.SearchTerms) > 0 {
		fmt.Fprintf(w, " for terms %s", strings.Join(response.SearchTerms, ", "))
	}
	fmt.Fprintf(w, " (showing %d)\n\n", len(response.Results))
	for i := range response.Results {
		writeOneResult(w, &response.Results[i])
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d [%s] %s", result.ID, result.Platform,
		result.Timestamp.Local().Format("2006-01-02 15:04"))
	if result.Relevance > 0 {
		fmt.Fprintf(w, " | relevance: %d", result.Relevance)
	}
	fmt.Fprintln(w)
	if len(result.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(result.Tags, ", "))
	}
	if result.Notes != "" {
		fmt.Fprintf(w, "Notes: %s\n", utils.Truncate(result.Notes, 120))
	}
	fmt.Fprintf(w, "\nQ: %s\n", utils.Truncate(result.UserText, 200))
	fmt.Fprintf(w, "A: %s\n\n", utils.Truncate(result.ResponseText, 200))
}

// WriteStats writes catalogue statistics to w in the given format.
func WriteStats(w io.Writer, stats *models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "Catalogued chats: %d\n", stats.TotalChats)
	for platform, n := range stats.ByPlatform {
		fmt.Fprintf(w, "  %-20s %d\n", platform, n)
	}
	if stats.DateRange.Min != nil && stats.DateRange.Max != nil {
		fmt.Fprintf(w, "Date range: %s to %s\n",
			stats.DateRange.Min.Local().Format(time.DateOnly),
			stats.DateRange.Max.Local().Format(time.DateOnly))
	}
	if stats.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Database size: %d bytes\n", stats.DiskUsageBytes)
	}
	return nil
}
