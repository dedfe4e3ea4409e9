package cruce

import (
	"fmt"
	"net/http"
	"time"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/crossing"
)

// CrossingResult is the JSON body of a crossing run. Rows is a bounded
// preview; the export variant carries the full table.
type CrossingResult struct {
	MasterFileName   string               `json:"master_file_name"`
	MasterFileHash   string               `json:"master_file_hash"`
	DispatchFileName string               `json:"dispatch_file_name"`
	DispatchFileHash string               `json:"dispatch_file_hash"`
	MasterSheet      string               `json:"master_sheet"`
	DispatchSheet    string               `json:"dispatch_sheet"`
	Summary          crossing.Summary     `json:"summary"`
	Rows             []crossing.CrossedRow `json:"rows"`
	Warnings         []string             `json:"warnings,omitempty"`
	Info             []string             `json:"info,omitempty"`
}

// CrossUpload stamps a processed dispatch plan back onto the pending-dispatch
// master table: "master_file" is the master, "dispatch_file" the plan —
// typically the workbook a process/export call produced.
func CrossUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, rows, ok := runCrossing(w, r)
		if !ok {
			return
		}
		limit := previewLimit(r)
		if limit < len(rows) {
			result.Rows = rows[:limit]
		} else {
			result.Rows = rows
		}
		writeJSON(w, map[string]interface{}{"success": true, "result": result})
	}
}

// CrossExport streams the full crossed master table as an XLSX attachment.
func CrossExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, rows, ok := runCrossing(w, r)
		if !ok {
			return
		}
		filename := fmt.Sprintf("cruzado_%s.xlsx", time.Now().Format(constants.DateFormatStamp))
		writeXLSXAttachment(w, filename, "Cruzado", crossedHeader, crossedRows(rows))
	}
}

func runCrossing(w http.ResponseWriter, r *http.Request) (CrossingResult, []crossing.CrossedRow, bool) {
	start := time.Now()
	var result CrossingResult

	if err := r.ParseMultipartForm(256 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "multipart parse error: "+err.Error())
		return result, nil, false
	}

	masterFH, okMaster := formFile(r, "master_file")
	dispatchFH, okDispatch := formFile(r, "dispatch_file")
	if !okMaster || !okDispatch {
		httpError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
		return result, nil, false
	}

	masterUp, err := openWorkbook(masterFH)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	defer masterUp.Cleanup()
	dispatchUp, err := openWorkbook(dispatchFH)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	defer dispatchUp.Cleanup()

	result.MasterFileName = masterUp.FileName
	result.MasterFileHash = masterUp.FileHash
	result.DispatchFileName = dispatchUp.FileName
	result.DispatchFileHash = dispatchUp.FileHash

	masterMap, err := parseMappingParam(r, "master_mapping")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	dispatchMap, err := parseMappingParam(r, "dispatch_mapping")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}

	master, masterSheet, err := loadMasterTable(masterUp, r.FormValue("master_sheet"), masterMap)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	dispatch, dispatchSheet, err := loadDispatchTable(dispatchUp, r.FormValue("dispatch_sheet"), dispatchMap)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	result.MasterSheet = masterSheet
	result.DispatchSheet = dispatchSheet

	params := crossing.Params{
		Observation:  r.FormValue("observation"),
		NewWorkOrder: r.FormValue("new_work_order"),
		NewJobNumber: r.FormValue("new_job_number"),
	}
	rows, summary := crossing.Cross(master, dispatch, params)
	result.Summary = summary

	elapsed := time.Since(start).Round(time.Millisecond)
	result.Info = append(result.Info, fmt.Sprintf("crossed %d dispatch row(s) against %d master record(s) in %s", len(dispatch), len(master), elapsed))
	return result, rows, true
}

func loadMasterTable(up *uploadedWorkbook, sheetParam string, userMap map[string]string) ([]crossing.MasterRecord, string, error) {
	sheet, err := pickFirstSheet(up, sheetParam)
	if err != nil {
		return nil, "", err
	}
	header, data, err := splitSheet(up.Workbook, sheet)
	if err != nil {
		return nil, sheet, err
	}
	m, err := crossing.ResolveMasterColumns(header, userMap)
	if err != nil {
		return nil, sheet, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	return crossing.BuildMasterRecords(data, m), sheet, nil
}

func loadDispatchTable(up *uploadedWorkbook, sheetParam string, userMap map[string]string) ([]crossing.DispatchRow, string, error) {
	sheet, err := pickFirstSheet(up, sheetParam)
	if err != nil {
		return nil, "", err
	}
	header, data, err := splitSheet(up.Workbook, sheet)
	if err != nil {
		return nil, sheet, err
	}
	m, err := crossing.ResolveDispatchColumns(header, userMap)
	if err != nil {
		return nil, sheet, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	return crossing.BuildDispatchRows(data, m), sheet, nil
}

var crossedHeader = []string{
	"site_code", "item_id", "description", "consumed_qty", "balance", "crossed",
	"observation", "new_work_order", "new_job_number", "composite_ref", "dispatch_date",
}

func crossedRows(rows []crossing.CrossedRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, []interface{}{
			row.SiteCode, row.ItemID, row.Description,
			row.ConsumedQty.InexactFloat64(), row.Balance.InexactFloat64(), row.Crossed,
			row.Observation, row.NewWorkOrder, row.NewJobNumber, row.CompositeRef, row.DispatchDate,
		})
	}
	return out
}
