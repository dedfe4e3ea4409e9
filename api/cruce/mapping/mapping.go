// Package mapping resolves arbitrary spreadsheet headers to the canonical
// field names the allocation engine expects. Callers may send an explicit
// canonical-to-header map; anything left unresolved falls back to built-in
// guesses covering the usual SAP export headers.
package mapping

import (
	"fmt"
	"strings"

	"CruceMaterialSap/api/constants"
)

// Canonical field names shared by the mapper, the row builders, and the
// export schema.
const (
	FieldItemID              = "item_id"
	FieldMaterialCode        = "material_code"
	FieldMaterialDescription = "material_description"
	FieldSiteCode            = "site_code"
	FieldPlanName            = "plan_name"
	FieldRequestedQty        = "requested_qty"
	FieldStockDescription    = "stock_description"
	FieldAvailableQty        = "available_qty"
)

// TableMapping holds the resolved column index per canonical field. Fields
// that could not be resolved have no entry.
type TableMapping map[string]int

var requestFields = []string{
	FieldItemID,
	FieldMaterialCode,
	FieldMaterialDescription,
	FieldSiteCode,
	FieldPlanName,
	FieldRequestedQty,
}

var requestRequired = map[string]bool{
	FieldMaterialCode: true,
	FieldRequestedQty: true,
}

var requestGuesses = map[string][]string{
	FieldItemID:              {"item"},
	FieldMaterialCode:        {"material", "codigo material", "código material"},
	FieldMaterialDescription: {"texto breve de material", "descripción", "descripcion"},
	FieldSiteCode:            {"codigo obra sgt", "codigo obra", "código obra"},
	FieldPlanName:            {"nombre planilla", "planilla"},
	FieldRequestedQty:        {"cantidad", "planilla cantidad"},
}

var stockFields = []string{
	FieldItemID,
	FieldStockDescription,
	FieldMaterialCode,
	FieldAvailableQty,
}

var stockRequired = map[string]bool{
	FieldMaterialCode: true,
	FieldAvailableQty: true,
}

var stockGuesses = map[string][]string{
	FieldItemID:           {"item"},
	FieldStockDescription: {"texto breve de material", "descripcion_sap", "descripcion sap"},
	FieldMaterialCode:     {"material", "codigo material", "código material"},
	FieldAvailableQty:     {"libre utilización", "libre utilizacion", "sap"},
}

// ResolveRequestColumns maps the requests-sheet header row. A required field
// left unresolved is a configuration error, not a data-quality issue.
func ResolveRequestColumns(headers []string, userMap map[string]string) (TableMapping, error) {
	return Resolve(headers, userMap, requestFields, requestRequired, requestGuesses)
}

// ResolveStockColumns maps the stock-sheet header row.
func ResolveStockColumns(headers []string, userMap map[string]string) (TableMapping, error) {
	return Resolve(headers, userMap, stockFields, stockRequired, stockGuesses)
}

// Resolve maps a header row for an arbitrary field set: per field, the
// explicit user choice first (exact match, then case-insensitive), then the
// guess candidates. The request/stock resolvers are thin wrappers over it;
// other tables bring their own field lists.
func Resolve(headers []string, userMap map[string]string, fields []string, required map[string]bool, guesses map[string][]string) (TableMapping, error) {
	exact := make(map[string]int, len(headers))
	lower := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, dup := exact[h]; !dup {
			exact[h] = i
		}
		lh := strings.ToLower(h)
		if _, dup := lower[lh]; !dup {
			lower[lh] = i
		}
	}

	m := make(TableMapping, len(fields))
	var missing []string
	for _, field := range fields {
		idx := -1
		if header, ok := userMap[field]; ok && strings.TrimSpace(header) != "" {
			header = strings.TrimSpace(header)
			if i, ok := exact[header]; ok {
				idx = i
			} else if i, ok := lower[strings.ToLower(header)]; ok {
				idx = i
			}
		}
		if idx < 0 {
			for _, cand := range guesses[field] {
				if i, ok := lower[cand]; ok {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			m[field] = idx
		} else if required[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %s", constants.ErrMissingRequiredColumn, strings.Join(missing, ", "))
	}
	return m, nil
}

// Cell returns the trimmed value of a canonical field in one data row, empty
// when the field is unmapped or the row is short.
func (m TableMapping) Cell(row []string, field string) string {
	idx, ok := m[field]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
