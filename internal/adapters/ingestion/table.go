// Package ingestion reads tabular customer and loan data from spreadsheet
// and CSV files.
package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrSourceNotFound is returned when no supported file exists for a source
var ErrSourceNotFound = errors.New("source file not found")

// Extensions are tried in this order when locating a source file
var Extensions = []string{".xlsx", ".csv"}

// Row is one data row keyed by normalised header
type Row struct {
	// Number is the 1-based position of the row in the file, header included
	Number int
	Values map[string]string
}

// Get returns the first non-empty value among the given columns
func (r Row) Get(columns ...string) (string, bool) {
	for _, c := range columns {
		if v, ok := r.Values[c]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Table is a parsed sheet
type Table struct {
	Path    string
	Headers []string
	Rows    []Row
}

// HasColumn reports whether any of the columns is present in the header
func (t *Table) HasColumn(columns ...string) bool {
	for _, h := range t.Headers {
		for _, c := range columns {
			if h == c {
				return true
			}
		}
	}
	return false
}

// NormalizeHeader trims, lower-cases and replaces spaces with underscores
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// Locate finds dir/base with the first supported extension that exists
func Locate(dir, base string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", base, dir, ErrSourceNotFound)
}

// ReadFile parses a .xlsx or .csv file into a Table
func ReadFile(path string) (*Table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buildTable(path, records), nil
}

func buildTable(path string, records [][]string) *Table {
	t := &Table{Path: path}
	if len(records) == 0 {
		return t
	}

	for _, h := range records[0] {
		t.Headers = append(t.Headers, NormalizeHeader(h))
	}

	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		values := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if h == "" || j >= len(rec) {
				continue
			}
			values[h] = rec[j]
		}
		t.Rows = append(t.Rows, Row{Number: i + 2, Values: values})
	}
	return t
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
}

// ParseDate reads a calendar date written as text or as a spreadsheet
// serial number. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
