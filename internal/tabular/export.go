package tabular

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/salesops/leadhub/internal/domain/lead"
)

const exportSheet = "Leads"

// exportHeader is the fixed column order of the export file.
var exportHeader = []interface{}{
	"Name", "Email", "Phone", "Company", "Status",
	"Source", "District", "Assigned To", "Budget", "Created At",
}

// ExportXLSX renders the given leads as an XLSX workbook with a bold
// centered header row.
func ExportXLSX(leads []lead.Lead) ([]byte, error) {
	f := excelize.NewFile()

	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := f.SetCellStyle(exportSheet, "A1", "J1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, l := range leads {
		row := []interface{}{
			l.Name,
			deref(l.Email),
			l.Phone,
			deref(l.Company),
			string(l.Status),
			string(l.Source),
			deref(l.DistrictID),
			deref(l.AssignedTo),
			budgetCell(l.Budget),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}

		cell := fmt.Sprintf("A%d", i+2)

		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()

	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func budgetCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
