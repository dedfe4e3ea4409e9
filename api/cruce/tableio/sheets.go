package tableio

import (
	"fmt"
	"strings"

	"CruceMaterialSap/api/constants"
)

// PickSheet chooses which sheet to read. An explicit name wins and must
// exist (case-insensitive). Otherwise the first sheet whose name contains
// the keyword is taken, falling back to the sheet at the given index — the
// usual SAP workbooks name their tabs "material por descargar" and
// "existencia sap" but not always.
func PickSheet(names []string, explicit, keyword string, fallback int) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		for _, name := range names {
			if strings.EqualFold(name, strings.TrimSpace(explicit)) {
				return name, nil
			}
		}
		return "", fmt.Errorf("%s: %s", constants.ErrSheetNotFound, explicit)
	}

	kw := strings.ToLower(keyword)
	for _, name := range names {
		if kw != "" && strings.Contains(strings.ToLower(name), kw) {
			return name, nil
		}
	}

	if fallback >= 0 && fallback < len(names) {
		return names[fallback], nil
	}
	return "", fmt.Errorf("%s: workbook has %d sheet(s)", constants.ErrSheetNotFound, len(names))
}
