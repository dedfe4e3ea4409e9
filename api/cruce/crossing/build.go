package crossing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/mapping"
)

// Crossing-specific canonical fields, on top of the shared site/item ones.
const (
	FieldDescription  = "description"
	FieldBalance      = "balance"
	FieldDispatchDate = "dispatch_date"
	FieldQuantity     = "quantity"
	FieldDispatchable = "dispatchable"
)

var masterFields = []string{
	mapping.FieldSiteCode,
	mapping.FieldItemID,
	FieldDescription,
	FieldBalance,
	FieldDispatchDate,
}

var masterRequired = map[string]bool{
	mapping.FieldSiteCode: true,
	mapping.FieldItemID:   true,
	FieldBalance:          true,
}

var masterGuesses = map[string][]string{
	mapping.FieldSiteCode: {"codigo obra sgt", "codigo obra", "código obra"},
	mapping.FieldItemID:   {"item"},
	FieldDescription:      {"descripcion", "descripción", "texto breve de material"},
	FieldBalance:          {"saldo"},
	FieldDispatchDate:     {"fecha descar sgt", "fecha descargo sgt", "fecha"},
}

var dispatchFields = []string{
	mapping.FieldSiteCode,
	mapping.FieldItemID,
	FieldQuantity,
	FieldDispatchable,
}

var dispatchRequired = map[string]bool{
	mapping.FieldSiteCode: true,
	mapping.FieldItemID:   true,
	FieldQuantity:         true,
	FieldDispatchable:     true,
}

var dispatchGuesses = map[string][]string{
	mapping.FieldSiteCode: {"codigo obra sgt", "codigo obra", "código obra", "site_code"},
	mapping.FieldItemID:   {"item", "item_id"},
	FieldQuantity:         {"planilla cantidad", "cantidad", "requested_qty"},
	FieldDispatchable:     {"descargable", "dispatchable"},
}

// ResolveMasterColumns maps the master-table header row.
func ResolveMasterColumns(headers []string, userMap map[string]string) (mapping.TableMapping, error) {
	return mapping.Resolve(headers, userMap, masterFields, masterRequired, masterGuesses)
}

// ResolveDispatchColumns maps the dispatch-plan header row. The guesses
// accept both the original Spanish headers and the canonical names this
// service exports, so a plan produced here crosses back without any manual
// mapping.
func ResolveDispatchColumns(headers []string, userMap map[string]string) (mapping.TableMapping, error) {
	return mapping.Resolve(headers, userMap, dispatchFields, dispatchRequired, dispatchGuesses)
}

// BuildMasterRecords converts mapped master rows into typed records. Rows
// without a site code are dropped, mirroring the master cleanup the source
// table always needs. Balances keep their sign: a master can legitimately
// start in deficit.
func BuildMasterRecords(rows [][]string, m mapping.TableMapping) []MasterRecord {
	out := make([]MasterRecord, 0, len(rows))
	for _, row := range rows {
		site := m.Cell(row, mapping.FieldSiteCode)
		if site == "" {
			continue
		}
		out = append(out, MasterRecord{
			SiteCode:     site,
			ItemID:       m.Cell(row, mapping.FieldItemID),
			Description:  m.Cell(row, FieldDescription),
			Balance:      coerceSignedNumber(m.Cell(row, FieldBalance)),
			DispatchDate: parseDate(m.Cell(row, FieldDispatchDate)),
		})
	}
	return out
}

// BuildDispatchRows converts mapped dispatch-plan rows into typed rows.
func BuildDispatchRows(rows [][]string, m mapping.TableMapping) []DispatchRow {
	out := make([]DispatchRow, 0, len(rows))
	for _, row := range rows {
		if m.Cell(row, mapping.FieldSiteCode) == "" && m.Cell(row, mapping.FieldItemID) == "" {
			continue
		}
		out = append(out, DispatchRow{
			SiteCode:     m.Cell(row, mapping.FieldSiteCode),
			ItemID:       m.Cell(row, mapping.FieldItemID),
			Quantity:     coerceSignedNumber(m.Cell(row, FieldQuantity)),
			Dispatchable: m.Cell(row, FieldDispatchable),
		})
	}
	return out
}

func coerceSignedNumber(raw string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dateLayouts = []string{
	constants.DateFormatLatam,
	"2/1/2006",
	"02-01-2006",
	constants.DateFormat,
	constants.DateTimeFormat,
}

// parseDate tries day-first layouts before ISO ones; unparseable cells come
// back as the zero time and render empty.
func parseDate(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
