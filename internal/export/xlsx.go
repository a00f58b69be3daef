// Package export writes forecast sequences to spreadsheets and reads them back.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"seatcast/internal/calendar"
	"seatcast/internal/forecast"
)

// SheetName is the worksheet holding the forecast rows.
const SheetName = "Tahminler"

// FileName is the suggested download name.
const FileName = "tahminler.xlsx"

// Headers are the column titles, in column order.
var Headers = []string{"Tarih", "Gün", "Davet Edilen", "Teyit Veren", "Teyit Vermeyen", "Sınava Katılacak"}

// WriteXLSX writes seq as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, seq forecast.Sequence) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	// 1. Sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// 2. Header
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "F1", style)
	}

	// 3. Rows
	for i, d := range seq {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			d.Date.Format(calendar.DateLayout),
			d.Weekday,
			d.Invited,
			d.Confirmed,
			d.Declined,
			d.Attending,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(SheetName, "A", "F", 16)

	return f.Write(w)
}

// ReadXLSX reads a workbook produced by WriteXLSX.
func ReadXLSX(r io.Reader) (forecast.Sequence, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", SheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", SheetName)
	}
	for i, h := range Headers {
		if i >= len(rows[0]) || rows[0][i] != h {
			return nil, fmt.Errorf("unexpected header in column %d", i+1)
		}
	}

	seq := make(forecast.Sequence, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < len(Headers) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", n+2, len(Headers), len(row))
		}
		date, err := calendar.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}

		var counts [4]int
		for i := range counts {
			if counts[i], err = strconv.Atoi(row[i+2]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+2, Headers[i+2], err)
			}
		}
		seq = append(seq, forecast.DailyForecast{
			Date:      date,
			Weekday:   row[1],
			Invited:   counts[0],
			Confirmed: counts[1],
			Declined:  counts[2],
			Attending: counts[3],
		})
	}
	return seq, nil
}
