package inspect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeSheetDetectsColumnTypes(t *testing.T) {
	rows := [][]string{
		{"Material", "Cantidad", "Fecha Descar SGT", "Comentario"},
		{"MAT-001", "12.5", "27/05/2025", ""},
		{"MAT-002", "3", "01/06/2025", ""},
		{"MAT-003", "1,200", "15/06/2025", ""},
	}

	info := AnalyzeSheet("existencia", rows)

	require.Equal(t, "existencia", info.Name)
	require.Equal(t, 3, info.TotalRows)
	require.Equal(t, 4, info.TotalCols)
	require.Len(t, info.Columns, 4)

	require.Equal(t, TypeText, info.Columns[0].Type)
	require.Equal(t, TypeNumber, info.Columns[1].Type)
	require.Equal(t, TypeDate, info.Columns[2].Type)
	require.Equal(t, TypeEmpty, info.Columns[3].Type)
	require.Equal(t, 3, info.Columns[3].Nulls)
	require.Equal(t, "MAT-001", info.Columns[0].Example)
}

func TestAnalyzeSheetMixedColumnDegradesToText(t *testing.T) {
	rows := [][]string{
		{"Valor"},
		{"12"},
		{"doce"},
	}

	info := AnalyzeSheet("hoja", rows)

	require.Equal(t, TypeText, info.Columns[0].Type)
	require.Equal(t, 2, info.Columns[0].NonNull)
}

func TestAnalyzeSheetSamplesOnlyLeadingRows(t *testing.T) {
	rows := [][]string{{"Valor"}}
	for i := 0; i < 40; i++ {
		rows = append(rows, []string{fmt.Sprintf("%d", i)})
	}
	// A late non-numeric cell must not affect the sampled type.
	rows = append(rows, []string{"texto"})

	info := AnalyzeSheet("hoja", rows)

	require.Equal(t, 41, info.TotalRows)
	require.Equal(t, TypeNumber, info.Columns[0].Type)
	require.Equal(t, 10, info.Columns[0].NonNull)
}

func TestBuildPreviewUppercasesHeadersAndDerivesWorkOrderColumns(t *testing.T) {
	rows := [][]string{
		{"Texto cab.documento", "Item", "Material"},
		{"OC 206012025020002 despacho", "10", "MAT-001"},
		{"sin codigo", "20", "MAT-002"},
	}

	p := BuildPreview(rows, 0, "")

	require.Equal(t, []string{"TEXTO CAB.DOCUMENTO", "ITEM", "MATERIAL", "OBRA Y TRABAJO", "OBRA-ITEM"}, p.Headers)
	require.Len(t, p.Rows, 2)
	require.Equal(t, "2060120250200-02", p.Rows[0][3])
	require.Equal(t, "206012025020002-10", p.Rows[0][4])
	require.Equal(t, "", p.Rows[1][3])
	require.Equal(t, "", p.Rows[1][4])
}

func TestBuildPreviewFiltersByWarehouseAndListsValues(t *testing.T) {
	rows := [][]string{
		{"Material", "Almacén"},
		{"MAT-001", "A100"},
		{"MAT-002", "B200"},
		{"MAT-003", "A100"},
	}

	p := BuildPreview(rows, 0, "A100")

	require.Equal(t, []string{"A100", "B200"}, p.Warehouses)
	require.Len(t, p.Rows, 2)
	require.Equal(t, "MAT-001", p.Rows[0][0])
	require.Equal(t, "MAT-003", p.Rows[1][0])
}

func TestBuildPreviewLimitStillScansWarehouses(t *testing.T) {
	rows := [][]string{
		{"Material", "Almacen"},
		{"MAT-001", "A100"},
		{"MAT-002", "B200"},
		{"MAT-003", "C300"},
	}

	p := BuildPreview(rows, 1, "")

	require.Len(t, p.Rows, 1)
	require.Equal(t, []string{"A100", "B200", "C300"}, p.Warehouses)
}

func TestBuildPreviewPadsShortRows(t *testing.T) {
	rows := [][]string{
		{"A", "B", "C"},
		{"solo"},
	}

	p := BuildPreview(rows, 0, "")

	require.Len(t, p.Rows[0], 3)
	require.Equal(t, "solo", p.Rows[0][0])
	require.Equal(t, "", p.Rows[0][2])
}

func TestBuildPreviewEmptySheet(t *testing.T) {
	p := BuildPreview(nil, 5, "")
	require.Empty(t, p.Headers)
	require.Empty(t, p.Rows)
}
