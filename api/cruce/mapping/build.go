package mapping

import (
	"strings"

	"github.com/shopspring/decimal"

	"CruceMaterialSap/api/cruce/allocation"
)

// CoerceNonNegativeNumber turns a raw quantity cell into a non-negative
// decimal. Blank cells are zero. Thousands separators are stripped before
// parsing. Unparseable or negative values default to zero and report
// clean=false — the deliberate leniency that lets a run finish on dirty data
// instead of aborting it.
func CoerceNonNegativeNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, true
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// BuildRequestLines converts mapped data rows into typed request lines,
// preserving row order. Fully blank rows are skipped. The second return is
// the number of dirty quantity cells that were defaulted to zero.
func BuildRequestLines(rows [][]string, m TableMapping) ([]allocation.RequestLine, int) {
	lines := make([]allocation.RequestLine, 0, len(rows))
	dirty := 0
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		qty, clean := CoerceNonNegativeNumber(m.Cell(row, FieldRequestedQty))
		if !clean {
			dirty++
		}
		lines = append(lines, allocation.RequestLine{
			ItemID:              m.Cell(row, FieldItemID),
			MaterialCode:        m.Cell(row, FieldMaterialCode),
			MaterialDescription: m.Cell(row, FieldMaterialDescription),
			SiteCode:            m.Cell(row, FieldSiteCode),
			PlanName:            m.Cell(row, FieldPlanName),
			RequestedQty:        qty,
		})
	}
	return lines, dirty
}

// BuildStockEntries converts mapped data rows into typed stock entries.
func BuildStockEntries(rows [][]string, m TableMapping) ([]allocation.StockEntry, int) {
	entries := make([]allocation.StockEntry, 0, len(rows))
	dirty := 0
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		qty, clean := CoerceNonNegativeNumber(m.Cell(row, FieldAvailableQty))
		if !clean {
			dirty++
		}
		entries = append(entries, allocation.StockEntry{
			ItemID:           m.Cell(row, FieldItemID),
			StockDescription: m.Cell(row, FieldStockDescription),
			MaterialCode:     m.Cell(row, FieldMaterialCode),
			AvailableQty:     qty,
		})
	}
	return entries, dirty
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
