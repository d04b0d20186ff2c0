// Package tabular converts between spreadsheet bytes and lead
// records: CSV and XLSX in, styled XLSX out.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/salesops/leadhub/internal/domain/lead"
)

var (
	ErrUnsupportedFormat = errors.New("file must be CSV or Excel format")
	ErrMissingColumns    = errors.New("missing required columns")
)

// requiredColumns are matched case-sensitively against the header row.
var requiredColumns = []string{"name", "phone"}

// RowError reports a skipped data row. Row is 1-based and counts data
// rows, not the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseLeads decodes an uploaded file into lead-creation records.
// The whole parse fails when the format is unknown or a required
// column is absent; individual bad rows are skipped and reported so
// the rest of the batch still imports. Source is always forced to
// "upload".
func ParseLeads(filename string, data []byte) ([]lead.CreateLeadRequest, []RowError, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx", ".xls":
		records, err = readXLSX(data)
	default:
		return nil, nil, ErrUnsupportedFormat
	}

	if err != nil {
		return nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
	}

	header := make(map[string]int, len(records[0]))

	for i, col := range records[0] {
		header[strings.TrimSpace(col)] = i
	}

	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
		}
	}

	var out []lead.CreateLeadRequest
	var rowErrs []RowError

	for i, record := range records[1:] {
		cell := func(name string) string {
			idx, ok := header[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		name := cell("name")
		phone := cell("phone")

		if name == "" || phone == "" {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: "name and phone are required"})
			continue
		}

		req := lead.CreateLeadRequest{
			Name:    name,
			Phone:   phone,
			Email:   optional(cell("email")),
			Company: optional(cell("company")),
			Notes:   optional(cell("notes")),
			Status:  parseStatus(cell("status")),
			Source:  lead.SourceUpload,
			Budget:  parseBudget(cell("budget")),
		}

		out = append(out, req)
	}

	return out, rowErrs, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	// rows may legitimately leave trailing optional cells empty
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()

	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))

	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}

	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))

	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}

	return rows, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// blank or unrecognized statuses fall back to "new"
func parseStatus(v string) lead.Status {
	s := lead.Status(v)
	if !s.Valid() {
		return lead.StatusNew
	}
	return s
}

// blank, unparsable or negative budgets import as absent
func parseBudget(v string) *float64 {
	if v == "" {
		return nil
	}

	b, err := strconv.ParseFloat(v, 64)

	if err != nil || b < 0 {
		return nil
	}

	return &b
}
