// Package tableio parses uploaded spreadsheets into raw string tables and
// renders result tables back out as XLSX. CSV, XLSX and legacy XLS uploads
// all normalize to the same [][]string shape: header row first, data rows
// after, cells untrimmed.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"CruceMaterialSap/api/constants"
)

// Workbook is a fully parsed upload: every sheet loaded, order preserved.
type Workbook struct {
	names []string
	rows  map[string][][]string
}

// ReadWorkbook parses an upload by filename extension. A CSV becomes a
// one-sheet workbook named after the file.
func ReadWorkbook(r io.ReadSeeker, filename string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return readCSV(r, filename)
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	default:
		return nil, errors.New(constants.ErrUnsupportedFileType)
	}
}

// SheetNames lists the sheets in workbook order.
func (wb *Workbook) SheetNames() []string {
	return wb.names
}

// Rows returns the raw table of a sheet, matched case-insensitively.
func (wb *Workbook) Rows(sheet string) ([][]string, error) {
	if rows, ok := wb.rows[sheet]; ok {
		return rows, nil
	}
	for name, rows := range wb.rows {
		if strings.EqualFold(name, sheet) {
			return rows, nil
		}
	}
	return nil, fmt.Errorf("%s: %s", constants.ErrSheetNotFound, sheet)
}

// SplitHeader separates the header row from the data rows.
func SplitHeader(rows [][]string) ([]string, [][]string, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New(constants.ErrEmptySheet)
	}
	return rows[0], rows[1:], nil
}

func readCSV(r io.Reader, filename string) (*Workbook, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return &Workbook{
		names: []string{name},
		rows:  map[string][][]string{name: rows},
	}, nil
}

func readXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := &Workbook{rows: map[string][][]string{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		wb.names = append(wb.names, name)
		wb.rows[name] = rows
	}
	return wb, nil
}

func readXLS(r io.ReadSeeker) (*Workbook, error) {
	f, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}

	wb := &Workbook{rows: map[string][][]string{}}
	for i := 0; i < f.NumSheets(); i++ {
		sheet := f.GetSheet(i)
		if sheet == nil {
			continue
		}
		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for rowIdx := 0; rowIdx <= int(sheet.MaxRow); rowIdx++ {
			row := sheet.Row(rowIdx)
			if row == nil {
				rows = append(rows, []string{})
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for col := 0; col <= row.LastCol(); col++ {
				cells = append(cells, row.Col(col))
			}
			rows = append(rows, cells)
		}
		wb.names = append(wb.names, sheet.Name)
		wb.rows[sheet.Name] = rows
	}
	return wb, nil
}
