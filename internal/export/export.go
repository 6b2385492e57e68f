// Package export renders search results as downloadable CSV or XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marfleetn/chatCAT/internal/models"
)

// Format selects the export file format.
type Format string

const (
	// FormatCSV is comma-separated values.
	FormatCSV Format = "csv"
	// FormatXLSX is an Excel workbook.
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a request parameter to a Format; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

var header = []string{
	"id", "platform", "conversation_id", "timestamp",
	"user_message", "ai_response", "notes", "tags", "relevance",
}

func row(r *models.SearchResult) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Platform,
		r.ConversationID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.UserText,
		r.ResponseText,
		r.Notes,
		strings.Join(r.Tags, ","),
		strconv.Itoa(r.Relevance),
	}
}

// Write renders results to w in the given format.
func Write(w io.Writer, format Format, results []models.SearchResult) error {
	if format == FormatXLSX {
		return writeXLSX(w, results)
	}
	return writeCSV(w, results)
}

func writeCSV(w io.Writer, results []models.SearchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range results {
		if err := cw.Write(row(&results[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Chats"

func writeXLSX(w io.Writer, results []models.SearchResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := writeXLSXRow(f, 1, header); err != nil {
		return err
	}
	for i := range results {
		if err := writeXLSXRow(f, i+2, row(&results[i])); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeXLSXRow(f *excelize.File, rowNum int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}
