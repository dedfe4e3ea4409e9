// Package inspect reports what is inside an uploaded workbook before anyone
// commits to a mapping: per-sheet shape and column stats, and header-level
// previews with the derived work-order columns the analysts expect.
package inspect

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/tableio"
	"CruceMaterialSap/internal/config"
)

// Column type labels reported by sheet analysis.
const (
	TypeNumber = "number"
	TypeDate   = "date"
	TypeText   = "text"
	TypeEmpty  = "empty"
)

// ColumnStats describes one column from a bounded sample of data rows.
type ColumnStats struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NonNull int    `json:"non_null"`
	Nulls   int    `json:"nulls"`
	Example string `json:"example,omitempty"`
}

// SheetInfo describes one sheet: full row count, column count, and sampled
// per-column stats.
type SheetInfo struct {
	Name      string        `json:"name"`
	TotalRows int           `json:"total_rows"`
	TotalCols int           `json:"total_columns"`
	Columns   []ColumnStats `json:"columns"`
}

// AnalyzeWorkbook reports SheetInfo for every sheet in workbook order.
func AnalyzeWorkbook(wb *tableio.Workbook) ([]SheetInfo, error) {
	infos := make([]SheetInfo, 0, len(wb.SheetNames()))
	for _, name := range wb.SheetNames() {
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, AnalyzeSheet(name, rows))
	}
	return infos, nil
}

// AnalyzeSheet derives stats from the header row plus a sample of the first
// data rows. Row totals count data rows, not the header.
func AnalyzeSheet(name string, rows [][]string) SheetInfo {
	info := SheetInfo{Name: name}
	if len(rows) == 0 {
		return info
	}
	header := rows[0]
	data := rows[1:]
	info.TotalRows = len(data)
	info.TotalCols = len(header)

	sample := data
	if len(sample) > config.InspectSampleRows {
		sample = sample[:config.InspectSampleRows]
	}

	for col, colName := range header {
		stats := ColumnStats{Name: strings.TrimSpace(colName), Type: TypeEmpty}
		for _, row := range sample {
			cell := ""
			if col < len(row) {
				cell = strings.TrimSpace(row[col])
			}
			if cell == "" {
				stats.Nulls++
				continue
			}
			stats.NonNull++
			if stats.Example == "" {
				stats.Example = cell
			}
			stats.Type = mergeType(stats.Type, cellType(cell))
		}
		info.Columns = append(info.Columns, stats)
	}
	return info
}

func cellType(cell string) string {
	if _, err := decimal.NewFromString(strings.ReplaceAll(cell, ",", "")); err == nil {
		return TypeNumber
	}
	for _, layout := range []string{constants.DateFormatLatam, constants.DateFormat, constants.DateTimeFormat} {
		if _, err := time.Parse(layout, cell); err == nil {
			return TypeDate
		}
	}
	return TypeText
}

// mergeType keeps a column's detected type only while every sampled cell
// agrees; any mix degrades to text.
func mergeType(current, next string) string {
	if current == TypeEmpty || current == next {
		return next
	}
	return TypeText
}

// Preview is a bounded slice of a sheet with uppercased headers, derived
// work-order columns, and the warehouse values available for filtering.
type Preview struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Warehouses []string   `json:"warehouses,omitempty"`
}

var workOrderCode = regexp.MustCompile(`\d{15,17}`)

const (
	headerDocumentText = "TEXTO CAB.DOCUMENTO"
	headerItem         = "ITEM"
	headerWorkAndJob   = "OBRA Y TRABAJO"
	headerWorkAndItem  = "OBRA-ITEM"
)

// BuildPreview uppercases the headers, appends the derived columns when the
// document-text column is present, applies the optional warehouse filter,
// and caps the row count. The derived "OBRA Y TRABAJO" column splits the
// 15-17 digit code from the document text into work order and job; the
// "OBRA-ITEM" column joins the full code with the item.
func BuildPreview(rows [][]string, limit int, warehouse string) Preview {
	if len(rows) == 0 {
		return Preview{}
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToUpper(strings.TrimSpace(h))
	}
	data := rows[1:]

	docCol := indexOf(headers, headerDocumentText)
	itemCol := indexOf(headers, headerItem)
	warehouseCol := indexOf(headers, "ALMACÉN")
	if warehouseCol < 0 {
		warehouseCol = indexOf(headers, "ALMACEN")
	}

	if docCol >= 0 {
		headers = append(headers, headerWorkAndJob)
		if itemCol >= 0 {
			headers = append(headers, headerWorkAndItem)
		}
	}

	p := Preview{Headers: headers}
	for _, row := range data {
		cells := padRow(row, len(rows[0]))
		if warehouseCol >= 0 {
			value := strings.TrimSpace(cells[warehouseCol])
			if value != "" && !contains(p.Warehouses, value) {
				p.Warehouses = append(p.Warehouses, value)
			}
			if warehouse != "" && value != warehouse {
				continue
			}
		}
		if docCol >= 0 {
			code := workOrderCode.FindString(cells[docCol])
			cells = append(cells, splitWorkAndJob(code))
			if itemCol >= 0 {
				cells = append(cells, joinWorkAndItem(code, strings.TrimSpace(cells[itemCol])))
			}
		}
		if limit > 0 && len(p.Rows) >= limit {
			// Keep scanning so the warehouse list covers the whole sheet.
			continue
		}
		p.Rows = append(p.Rows, cells)
	}
	return p
}

func splitWorkAndJob(code string) string {
	if len(code) <= 2 {
		return ""
	}
	return code[:len(code)-2] + "-" + code[len(code)-2:]
}

func joinWorkAndItem(code, item string) string {
	if code == "" || item == "" {
		return ""
	}
	return code + "-" + item
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return append([]string(nil), row...)
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
