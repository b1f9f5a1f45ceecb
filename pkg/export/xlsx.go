package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 10
	maxColWidth = 60
	// widthSampleRows bounds how many rows feed the width heuristic.
	widthSampleRows = 200
)

// XLSXExporter renders datasets into a workbook, one sheet per dataset.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render produces an XLSX workbook. Each sheet gets a bold header row with an
// auto-filter and approximate column widths.
func (e *XLSXExporter) Render(datasets ...Dataset) ([]byte, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one dataset")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, data := range datasets {
		if len(data.Headers) == 0 {
			return nil, fmt.Errorf("sheet %d requires at least one header", i+1)
		}
		name := data.Title
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, data, bold); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, data Dataset, headerStyle int) error {
	records := data.records()

	header := make([]any, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	for r, record := range records {
		for c, val := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(data.Headers))
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", last+"1", headerStyle)
	_ = f.AutoFilter(sheet, "A1:"+last+"1", nil)

	for c, h := range data.Headers {
		width := float64(utf8.RuneCountInString(h)) + 1.5
		for r := 0; r < len(records) && r < widthSampleRows; r++ {
			if w := float64(utf8.RuneCountInString(records[r][c])) * 1.1; w > width {
				width = w
			}
		}
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		col, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}
	return nil
}
