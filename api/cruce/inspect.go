package cruce

import (
	"net/http"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/inspect"
)

// InspectUpload analyzes every sheet of an uploaded workbook: shape, sampled
// column types, null counts and examples. Meant for the mapping step, before
// anyone commits to a run.
func InspectUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, ok := openSingleUpload(w, r)
		if !ok {
			return
		}
		defer up.Cleanup()

		sheets, err := inspect.AnalyzeWorkbook(up.Workbook)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{
			"success":   true,
			"file_name": up.FileName,
			"file_hash": up.FileHash,
			"sheets":    sheets,
		})
	}
}

// PreviewUpload returns the leading rows of one sheet with uppercased
// headers, the derived work-order columns, and an optional warehouse filter.
func PreviewUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, ok := openSingleUpload(w, r)
		if !ok {
			return
		}
		defer up.Cleanup()

		sheet, err := pickFirstSheet(up, r.FormValue("sheet"))
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows, err := up.Workbook.Rows(sheet)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		preview := inspect.BuildPreview(rows, previewLimit(r), r.FormValue("warehouse"))
		writeJSON(w, map[string]interface{}{
			"success":   true,
			"file_name": up.FileName,
			"sheet":     sheet,
			"preview":   preview,
		})
	}
}

func openSingleUpload(w http.ResponseWriter, r *http.Request) (*uploadedWorkbook, bool) {
	if err := r.ParseMultipartForm(256 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "multipart parse error: "+err.Error())
		return nil, false
	}
	fh, ok := formFile(r, "file")
	if !ok {
		httpError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
		return nil, false
	}
	up, err := openWorkbook(fh)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return up, true
}
