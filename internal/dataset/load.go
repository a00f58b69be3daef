// Package dataset loads the historical funnel records and prepares them for training.
package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"seatcast/internal/apperr"
)

// RawRow is one unparsed dataset row.
type RawRow struct {
	Line      int
	Date      string
	Invited   string
	Confirmed string
	Declined  string
	Attended  string
}

type column int

const (
	colDate column = iota
	colInvited
	colConfirmed
	colDeclined
	colAttended
	columnCount
)

var columnNames = [columnCount]string{"date", "invited", "confirmed", "declined", "attended"}

// Header aliases, lower-cased. The Turkish names are the ones used by the
// exam office spreadsheets.
var headerAliases = map[string]column{
	"tarih":                      colDate,
	"date":                       colDate,
	"davet edilen aday sayısı":   colInvited,
	"invited":                    colInvited,
	"invited count":              colInvited,
	"invited_count":              colInvited,
	"teyit veren aday sayısı":    colConfirmed,
	"confirmed":                  colConfirmed,
	"confirmed count":            colConfirmed,
	"confirmed_count":            colConfirmed,
	"teyit vermeyen aday sayısı": colDeclined,
	"declined":                   colDeclined,
	"declined count":             colDeclined,
	"declined_count":             colDeclined,
	"sınava katılan aday sayısı": colAttended,
	"attended":                   colAttended,
	"attended count":             colAttended,
	"attended_count":             colAttended,
}

// LoadFile reads a dataset from a ';'-separated CSV or an .xlsx workbook.
func LoadFile(path string) ([]RawRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewUnreadableDatasetError(err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV reads ';'-separated rows with a header line.
func LoadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.NewUnreadableDatasetError(err)
		}
		records = append(records, rec)
	}
	return fromTable(records)
}

// LoadXLSX reads the first sheet of a workbook with a header row.
func LoadXLSX(path string) ([]RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.NewUnreadableDatasetError(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("path", path).Msg("Failed to close workbook")
		}
	}()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, apperr.NewUnreadableDatasetError(err)
	}
	return fromTable(rows)
}

func fromTable(table [][]string) ([]RawRow, error) {
	if len(table) == 0 {
		return nil, apperr.NewMissingColumnError(columnNames[colDate])
	}

	index, err := resolveHeader(table[0])
	if err != nil {
		return nil, err
	}

	rows := make([]RawRow, 0, len(table)-1)
	for i, rec := range table[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, RawRow{
			Line:      i + 2,
			Date:      cell(rec, index[colDate]),
			Invited:   cell(rec, index[colInvited]),
			Confirmed: cell(rec, index[colConfirmed]),
			Declined:  cell(rec, index[colDeclined]),
			Attended:  cell(rec, index[colAttended]),
		})
	}
	return rows, nil
}

func resolveHeader(header []string) ([columnCount]int, error) {
	var index [columnCount]int
	for i := range index {
		index[i] = -1
	}

	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if c, ok := headerAliases[key]; ok && index[c] == -1 {
			index[c] = i
		}
	}

	for c, i := range index {
		if i == -1 {
			return index, apperr.NewMissingColumnError(columnNames[c])
		}
	}
	return index, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
