package cruce

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/tableio"
	"CruceMaterialSap/internal/checksum"
)

const requestsCSV = `Item,MATERIAL,Texto breve de material,CODIGO OBRA SGT,NOMBRE PLANILLA,Cantidad
10,MAT-001,CABLE 2.5MM,OB-01,PLAN-A,4
20,MAT-001,CABLE 2.5MM,OB-02,PLAN-B,8
30,MAT-XXX,TUBO PVC,OB-03,PLAN-C,2
`

const stockCSV = `Item,Descripcion_SAP,MATERIAL,Libre utilización
1,CABLE NYA 2.5,MAT-001,10
`

type processEnvelope struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Result  ProcessResult `json:"result"`
}

func decodeProcess(t *testing.T, body []byte) processEnvelope {
	t.Helper()
	var env processEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func singleWorkbook(t *testing.T) []byte {
	t.Helper()
	return buildXLSX(t,
		[]string{"Material por Descargar", "Existencia SAP"},
		map[string][][]interface{}{
			"Material por Descargar": {
				{"Item", "MATERIAL", "Texto breve de material", "CODIGO OBRA SGT", "NOMBRE PLANILLA", "Cantidad"},
				{"10", "MAT-001", "CABLE 2.5MM", "OB-01", "PLAN-A", 4},
				{"20", "MAT-001", "CABLE 2.5MM", "OB-02", "PLAN-B", 8},
				{"30", "MAT-XXX", "TUBO PVC", "OB-03", "PLAN-C", 2},
			},
			"Existencia SAP": {
				{"Item", "Descripcion_SAP", "MATERIAL", "Libre utilización"},
				{"1", "CABLE NYA 2.5", "MAT-001", 10},
			},
		})
}

func TestProcessUploadSingleWorkbookReconciles(t *testing.T) {
	body, contentType := multipartBody(t, nil, filePart{"file", "carga_agosto.xlsx", singleWorkbook(t)})

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeProcess(t, rec.Body.Bytes())
	require.True(t, env.Success)
	require.Equal(t, "carga_agosto.xlsx", env.Result.FileName)
	require.NotEmpty(t, env.Result.FileHash)
	require.NotEqual(t, uuid.Nil, env.Result.RunID)
	require.Equal(t, "Material por Descargar", env.Result.RequestSheet)
	require.Equal(t, "Existencia SAP", env.Result.StockSheet)
	require.Equal(t, 3, env.Result.TotalRequests)
	require.Equal(t, 1, env.Result.TotalStockEntries)

	require.Equal(t, 4, env.Result.Metrics.RowCount)
	require.Equal(t, 2, env.Result.Metrics.DispatchableCount)
	require.Equal(t, "4", env.Result.Metrics.TotalUnmet.String())

	require.Len(t, env.Result.Rows, 4)
	first := env.Result.Rows[0]
	require.Equal(t, "Si", first.Dispatchable)
	require.Equal(t, "4", first.AllocatedQty.String())
	require.Equal(t, "CABLE NYA 2.5", first.StockDescription)

	served := env.Result.Rows[1]
	require.Equal(t, "20", served.ItemID)
	require.Equal(t, "Si", served.Dispatchable)
	require.Equal(t, "6", served.RequestedQty.String())
	require.Equal(t, "6", served.AllocatedQty.String())

	remainder := env.Result.Rows[2]
	require.Equal(t, "20", remainder.ItemID)
	require.Equal(t, "No", remainder.Dispatchable)
	require.Equal(t, "2", remainder.UnmetQty.String())

	unmatched := env.Result.Rows[3]
	require.Equal(t, "MAT-XXX", unmatched.MaterialCode)
	require.Equal(t, "No", unmatched.Dispatchable)
	require.Equal(t, "", unmatched.StockDescription)

	// MAT-XXX is flagged up front, and with no pool the default persist
	// attempt degrades to a warning too.
	require.False(t, env.Result.Persisted)
	require.Len(t, env.Result.Warnings, 2)
	require.Contains(t, env.Result.Warnings[0], "no stock entry")
	require.Contains(t, env.Result.Warnings[1], constants.ErrDBConnection)
}

func TestProcessUploadDualCSVFiles(t *testing.T) {
	body, contentType := multipartBody(t,
		map[string]string{"persist": "false"},
		filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeProcess(t, rec.Body.Bytes())
	require.True(t, env.Success)
	require.Equal(t, "pedidos.csv", env.Result.FileName)
	require.Equal(t, "existencia.csv", env.Result.StockFileName)
	require.NotEmpty(t, env.Result.StockFileHash)
	require.Equal(t, "pedidos", env.Result.RequestSheet)
	require.Equal(t, "existencia", env.Result.StockSheet)
	require.Equal(t, 4, env.Result.Metrics.RowCount)
	require.False(t, env.Result.Persisted)
	require.Len(t, env.Result.Warnings, 1)
	require.Contains(t, env.Result.Warnings[0], "no stock entry")
}

func TestProcessUploadPreviewLimitCapsRows(t *testing.T) {
	body, contentType := multipartBody(t,
		map[string]string{"persist": "false", "preview_rows": "1"},
		filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeProcess(t, rec.Body.Bytes())
	require.Len(t, env.Result.Rows, 1)
	require.Equal(t, 4, env.Result.Metrics.RowCount)
}

func TestProcessUploadInlineMappingOverridesGuesses(t *testing.T) {
	requests := "Codigo,Cant\nMAT-001,5\n"
	body, contentType := multipartBody(t,
		map[string]string{
			"persist":          "false",
			"requests_mapping": `{"material_code":"Codigo","requested_qty":"Cant"}`,
		},
		filePart{"requests_file", "pedidos.csv", []byte(requests)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeProcess(t, rec.Body.Bytes())
	require.Equal(t, 1, env.Result.Metrics.RowCount)
	require.Equal(t, "Si", env.Result.Rows[0].Dispatchable)
	require.Equal(t, "5", env.Result.Rows[0].AllocatedQty.String())
}

func TestProcessUploadMissingFileFails(t *testing.T) {
	body, contentType := multipartBody(t, map[string]string{"persist": "false"})

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, constants.ErrMissingUploadFile, decodeError(t, rec))
}

func TestProcessUploadRejectsBadMappingJSON(t *testing.T) {
	body, contentType := multipartBody(t,
		map[string]string{"requests_mapping": "{not json"},
		filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec), constants.ErrInvalidMappingJSON)
}

func TestProcessUploadMissingRequiredColumnFails(t *testing.T) {
	badStock := "Item,MATERIAL\n1,MAT-001\n"
	body, contentType := multipartBody(t, nil,
		filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
		filePart{"stock_file", "existencia.csv", []byte(badStock)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decodeError(t, rec)
	require.Contains(t, msg, constants.ErrMissingRequiredColumn)
	require.Contains(t, msg, "available_qty")
}

func TestProcessUploadUnknownExplicitSheetFails(t *testing.T) {
	body, contentType := multipartBody(t,
		map[string]string{"requests_sheet": "No Existe"},
		filePart{"file", "carga.xlsx", singleWorkbook(t)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec), constants.ErrSheetNotFound)
}

func TestProcessUploadPresetWithoutDatabaseFails(t *testing.T) {
	body, contentType := multipartBody(t,
		map[string]string{"requests_preset": "sap agosto"},
		filePart{"file", "carga.xlsx", singleWorkbook(t)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, decodeError(t, rec), constants.ErrDBConnection)
}

func TestProcessUploadDirtyQuantitiesBecomeWarnings(t *testing.T) {
	dirty := "MATERIAL,Cantidad\nMAT-001,n/a\nMAT-001,3\n"
	body, contentType := multipartBody(t,
		map[string]string{"persist": "false"},
		filePart{"requests_file", "pedidos.csv", []byte(dirty)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessUpload(nil, nil, nil), http.MethodPost, "/cruce/process", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeProcess(t, rec.Body.Bytes())
	require.True(t, env.Success)
	require.Len(t, env.Result.Warnings, 1)
	require.Contains(t, env.Result.Warnings[0], "request quantity cell")
	// The dirty row still participates, coerced to zero.
	require.Equal(t, 2, env.Result.Metrics.RowCount)
}

func TestProcessUploadFlagsRepeatedFile(t *testing.T) {
	history := checksum.NewHistory(8)
	handler := ProcessUpload(nil, nil, history)

	post := func() processEnvelope {
		body, contentType := multipartBody(t,
			map[string]string{"persist": "false"},
			filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
			filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
		)
		rec := doRequest(t, handler, http.MethodPost, "/cruce/process", contentType, body)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeProcess(t, rec.Body.Bytes())
	}

	first := post()
	require.Len(t, first.Result.Warnings, 1) // only the unmatched MAT-XXX note

	second := post()
	require.Len(t, second.Result.Warnings, 2)
	require.Contains(t, second.Result.Warnings[0], "already processed in run "+first.Result.RunID.String())
}

func TestProcessExportStreamsPlanWorkbook(t *testing.T) {
	body, contentType := multipartBody(t, nil,
		filePart{"requests_file", "pedidos.csv", []byte(requestsCSV)},
		filePart{"stock_file", "existencia.csv", []byte(stockCSV)},
	)

	rec := doRequest(t, ProcessExport(nil, nil, nil), http.MethodPost, "/cruce/process/export", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, constants.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	_, err := uuid.Parse(rec.Header().Get("X-Run-Id"))
	require.NoError(t, err)

	wb, err := tableio.ReadWorkbook(bytes.NewReader(rec.Body.Bytes()), "plan.xlsx")
	require.NoError(t, err)
	require.Equal(t, []string{"Cruce"}, wb.SheetNames())

	rows, err := wb.Rows("Cruce")
	require.NoError(t, err)
	require.Len(t, rows, 5) // header + four plan lines
	require.Equal(t, planHeader, rows[0])

	// The split pair survives the round trip.
	require.Equal(t, []string{"20", "MAT-001", "CABLE 2.5MM", "OB-02", "PLAN-B", "6", "CABLE NYA 2.5", "6", "0", "Si"}, rows[2])
	require.Equal(t, "No", rows[3][9])
	require.Equal(t, "2", rows[3][8])
}

func TestShouldPersistDefaults(t *testing.T) {
	mk := func(value string) *http.Request {
		req, err := http.NewRequest(http.MethodPost, "/cruce/process", strings.NewReader("persist="+value))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	require.True(t, shouldPersist(mk(""), true))
	require.False(t, shouldPersist(mk(""), false))
	require.False(t, shouldPersist(mk("false"), true))
	require.True(t, shouldPersist(mk("1"), false))
	require.True(t, shouldPersist(mk("garbage"), true))
}
