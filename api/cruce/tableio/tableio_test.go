package tableio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildTestWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for rowIdx, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestReadWorkbookParsesXLSXSheets(t *testing.T) {
	src := buildTestWorkbook(t, map[string][][]interface{}{
		"material por descargar": {
			{"MATERIAL", "Cantidad"},
			{"M-1", 4},
		},
		"existencia sap": {
			{"Material", "SAP"},
			{"M-1", 10},
		},
	}, []string{"material por descargar", "existencia sap"})

	wb, err := ReadWorkbook(src, "carga.xlsx")
	require.NoError(t, err)
	require.Equal(t, []string{"material por descargar", "existencia sap"}, wb.SheetNames())

	rows, err := wb.Rows("EXISTENCIA SAP") // case-insensitive lookup
	require.NoError(t, err)
	require.Equal(t, []string{"Material", "SAP"}, rows[0])
	require.Equal(t, "M-1", rows[1][0])

	_, err = wb.Rows("no existe")
	require.Error(t, err)
}

func TestReadWorkbookParsesCSVAsSingleSheet(t *testing.T) {
	csv := "MATERIAL,Cantidad\nM-1,4\nM-2,\"2,5\"\n"

	wb, err := ReadWorkbook(strings.NewReader(csv), "pedidos.csv")
	require.NoError(t, err)
	require.Equal(t, []string{"pedidos"}, wb.SheetNames())

	rows, err := wb.Rows("pedidos")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "2,5", rows[2][1])
}

func TestReadWorkbookRejectsUnknownExtension(t *testing.T) {
	_, err := ReadWorkbook(strings.NewReader("x"), "datos.txt")
	require.Error(t, err)
}

func TestPickSheetPrefersExplicitThenKeywordThenFallback(t *testing.T) {
	names := []string{"Resumen", "Material por Descargar", "Existencia SAP"}

	name, err := PickSheet(names, "existencia sap", "", 0)
	require.NoError(t, err)
	require.Equal(t, "Existencia SAP", name)

	_, err = PickSheet(names, "Inventario", "", 0)
	require.Error(t, err)

	name, err = PickSheet(names, "", "material por descargar", 0)
	require.NoError(t, err)
	require.Equal(t, "Material por Descargar", name)

	name, err = PickSheet(names, "", "no aparece", 1)
	require.NoError(t, err)
	require.Equal(t, "Material por Descargar", name)

	_, err = PickSheet([]string{"unica"}, "", "existencia", 1)
	require.Error(t, err)
}

func TestSplitHeaderRequiresARow(t *testing.T) {
	header, data, err := SplitHeader([][]string{{"A", "B"}, {"1", "2"}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, header)
	require.Len(t, data, 1)

	_, _, err = SplitHeader(nil)
	require.Error(t, err)
}

func TestWriteXLSXRoundTripsThroughReader(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, "cruce sap", []string{"material_code", "allocated_qty"}, [][]interface{}{
		{"M-1", "4"},
		{"M-2", "0"},
	})
	require.NoError(t, err)

	wb, err := ReadWorkbook(bytes.NewReader(buf.Bytes()), "resultado.xlsx")
	require.NoError(t, err)
	require.Equal(t, []string{"cruce sap"}, wb.SheetNames())

	rows, err := wb.Rows("cruce sap")
	require.NoError(t, err)
	require.Equal(t, []string{"material_code", "allocated_qty"}, rows[0])
	require.Equal(t, []string{"M-1", "4"}, rows[1])
	require.Equal(t, []string{"M-2", "0"}, rows[2])
}
