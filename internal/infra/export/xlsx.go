// Package export renders grouped accounting reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Row is one line of a grouped report.
type Row struct {
	Label   string
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal
}

// Report is a titled table of grouped totals.
type Report struct {
	Title     string
	Dimension string // header of the label column, e.g. "Router"
	Period    string // human readable range, may be empty
	Rows      []Row
}

// ContentType is the MIME type of the workbooks written by WriteXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes r as a single-sheet workbook: a title line, a header row,
// one row per group and a closing total row.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	title := r.Title
	if r.Period != "" {
		title += " (" + r.Period + ")"
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}

	dimension := r.Dimension
	if dimension == "" {
		dimension = "Group"
	}
	if err := f.SetSheetRow(sheet, "A3", &[]any{dimension, "Total", "Count", "Average"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", "D3", bold); err != nil {
		return err
	}

	total := decimal.Zero
	count := 0
	line := 4
	for _, row := range r.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		values := []any{row.Label, row.Total.InexactFloat64(), row.Count, row.Average.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		total = total.Add(row.Total)
		count += row.Count
		line++
	}

	cell, _ := excelize.CoordinatesToCellName(1, line)
	totalRow := []any{"Total", total.InexactFloat64(), count}
	if err := f.SetSheetRow(sheet, cell, &totalRow); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(4, line)
	if err := f.SetCellStyle(sheet, cell, end, bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "B4", fmt.Sprintf("B%d", line), money); err != nil {
		return err
	}
	if line > 4 {
		if err := f.SetCellStyle(sheet, "D4", fmt.Sprintf("D%d", line-1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
