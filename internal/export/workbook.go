// Package export builds spreadsheet downloads for the finance desk.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/currency"
)

// Row is one transaction line in a workbook, already flattened from the AR or
// AP shape.
type Row struct {
	Number       string
	Counterparty string
	Original     float64
	Paid         float64
	Outstanding  float64
	DueAt        time.Time
	Status       string
}

var headers = []string{"Number", "Counterparty", "Original", "Paid", "Outstanding", "Due Date", "Status"}

// WriteWorkbook renders rows into a single-sheet xlsx with a header row and a
// synthetic grand-total row at the bottom. Money cells are display strings in
// the given currency, matching what the back office prints on paper.
func WriteWorkbook(w io.Writer, sheet, currencyCode string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	var totalOriginal, totalPaid, totalOutstanding float64
	for i, row := range rows {
		totalOriginal += row.Original
		totalPaid += row.Paid
		totalOutstanding += row.Outstanding
		values := []any{
			row.Number,
			row.Counterparty,
			currency.Format(currencyCode, row.Original),
			currency.Format(currencyCode, row.Paid),
			currency.Format(currencyCode, row.Outstanding),
			row.DueAt.Format("2006-01-02"),
			row.Status,
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}

	totalRow := []any{
		"TOTAL",
		fmt.Sprintf("%d transactions", len(rows)),
		currency.Format(currencyCode, totalOriginal),
		currency.Format(currencyCode, totalPaid),
		currency.Format(currencyCode, totalOutstanding),
		"",
		"",
	}
	if err := setRow(f, sheet, len(rows)+2, totalRow); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
