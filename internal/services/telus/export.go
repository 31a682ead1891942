package telus

import (
	"encoding/json"
	"errors"
	"fmt"
	"trafficdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	FormatJSON  = "json"
	FormatExcel = "excel"
)

var ErrUnknownFormat = errors.New("telus: unknown export format")

var columns = []string{"Date", "Job #", "Site address", "Region", "Network #", "Approver", "Workers", "Hours", "Vehicles", "Notes"}

// Export returns the encoded report and its content type.
func Export(r models.TelusReport, format string) ([]byte, string, error) {
	switch format {
	case "", FormatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		return b, "application/json", err
	case FormatExcel, "xlsx":
		b, err := Excel(r)
		return b, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	}
	return nil, "", ErrUnknownFormat
}

// Excel lays the report rows out on a single sheet with a bold header and
// a totals line.
func Excel(r models.TelusReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(sheet, "A1", Subject(r)); err != nil {
		return nil, err
	}
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 3)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}

	var hours float64
	var workers, vehicles int
	for i, row := range r.Rows {
		values := []any{
			row.WorkDate.Format("2006-01-02"), row.JobNumber, row.SiteAddress, row.Region,
			row.NetworkNumber, row.Approver, row.WorkerCount, row.Hours, row.VehicleCount, row.Notes,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, i+4)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
		hours += row.Hours
		workers += row.WorkerCount
		vehicles += row.VehicleCount
	}

	totalRow := len(r.Rows) + 4
	for col, v := range map[int]any{1: "Total", 7: workers, 8: hours, 9: vehicles} {
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, totalRow)
	end, _ := excelize.CoordinatesToCellName(len(columns), totalRow)
	if err := f.SetCellStyle(sheet, first, end, bold); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "C", "C", 36)
	_ = f.SetColWidth(sheet, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
