package cruce

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/allocation"
	"CruceMaterialSap/api/cruce/mapping"
	"CruceMaterialSap/internal/checksum"
)

// ProcessResult is the JSON body of a reconciliation run. Rows holds a
// bounded preview; the full plan lives behind the run endpoints or the
// export variant.
type ProcessResult struct {
	RunID             uuid.UUID               `json:"run_id"`
	FileName          string                  `json:"file_name"`
	FileHash          string                  `json:"file_hash"`
	StockFileName     string                  `json:"stock_file_name,omitempty"`
	StockFileHash     string                  `json:"stock_file_hash,omitempty"`
	RequestSheet      string                  `json:"request_sheet"`
	StockSheet        string                  `json:"stock_sheet"`
	TotalRequests     int                     `json:"total_requests"`
	TotalStockEntries int                     `json:"total_stock_entries"`
	Metrics           allocation.Metrics      `json:"metrics"`
	Rows              []allocation.OutputLine `json:"rows"`
	Persisted         bool                    `json:"persisted"`
	Warnings          []string                `json:"warnings,omitempty"`
	Info              []string                `json:"info,omitempty"`
}

// ProcessUpload reconciles an uploaded requests table against a stock table
// and answers with metrics plus a row preview. The caller sends either one
// workbook holding both sheets under "file", or two files under
// "requests_file" and "stock_file". The finished run is stored unless
// persist=false or the database is down; a storage failure degrades to a
// warning, never a failed run.
func ProcessUpload(db *sql.DB, pool *pgxpool.Pool, history *checksum.History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, lines, ok := runReconciliation(w, r, db, pool, history, true)
		if !ok {
			return
		}
		limit := previewLimit(r)
		if limit < len(lines) {
			result.Rows = lines[:limit]
		} else {
			result.Rows = lines
		}
		writeJSON(w, map[string]interface{}{"success": true, "result": result})
	}
}

// ProcessExport runs the same pipeline but streams the full dispatch plan
// back as an XLSX attachment. Runs are not stored unless persist=true.
func ProcessExport(db *sql.DB, pool *pgxpool.Pool, history *checksum.History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, lines, ok := runReconciliation(w, r, db, pool, history, false)
		if !ok {
			return
		}
		filename := fmt.Sprintf("cruce_%s.xlsx", time.Now().Format(constants.DateFormatStamp))
		w.Header().Set("X-Run-Id", result.RunID.String())
		writeXLSXAttachment(w, filename, "Cruce", planHeader, planRows(lines))
	}
}

// runReconciliation is the shared pipeline: parse the upload, resolve
// columns, allocate, optionally persist. Returns ok=false after writing an
// error response.
func runReconciliation(w http.ResponseWriter, r *http.Request, db *sql.DB, pool *pgxpool.Pool, history *checksum.History, persistDefault bool) (ProcessResult, []allocation.OutputLine, bool) {
	start := time.Now()
	var result ProcessResult

	if err := r.ParseMultipartForm(256 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "multipart parse error: "+err.Error())
		return result, nil, false
	}

	requestsUpload, stockUpload, err := openProcessUploads(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	defer requestsUpload.Cleanup()
	if stockUpload != requestsUpload {
		defer stockUpload.Cleanup()
	}

	result.RunID = uuid.New()
	result.FileName = requestsUpload.FileName
	result.FileHash = requestsUpload.FileHash
	if stockUpload != requestsUpload {
		result.StockFileName = stockUpload.FileName
		result.StockFileHash = stockUpload.FileHash
	}
	if history != nil {
		if priorRun, seen := history.Seen(result.FileHash); seen {
			result.Warnings = append(result.Warnings, fmt.Sprintf("requests file already processed in run %s", priorRun))
		}
	}

	requestMap, err := resolveUserMap(r, db, "requests_mapping", "requests_preset", constants.PresetSideRequests)
	if err != nil {
		httpError(w, mappingErrorStatus(err), err.Error())
		return result, nil, false
	}
	stockMap, err := resolveUserMap(r, db, "stock_mapping", "stock_preset", constants.PresetSideStock)
	if err != nil {
		httpError(w, mappingErrorStatus(err), err.Error())
		return result, nil, false
	}

	requests, requestSheet, dirtyRequests, err := loadRequestTable(requestsUpload.Workbook, r.FormValue("requests_sheet"), requestMap)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}
	stockFallback := 1
	if stockUpload != requestsUpload {
		stockFallback = 0
	}
	stock, stockSheet, dirtyStock, err := loadStockTable(stockUpload.Workbook, r.FormValue("stock_sheet"), stockMap, stockFallback)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return result, nil, false
	}

	result.RequestSheet = requestSheet
	result.StockSheet = stockSheet
	result.TotalRequests = len(requests)
	result.TotalStockEntries = len(stock)
	if dirtyRequests > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d request quantity cell(s) were blank or invalid and defaulted to zero", dirtyRequests))
	}
	if dirtyStock > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d stock quantity cell(s) were blank or invalid and defaulted to zero", dirtyStock))
	}

	if unmatched := countUnmatchedCodes(requests, stock); unmatched > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d requested material code(s) have no stock entry", unmatched))
	}

	lines, metrics := allocation.Reconcile(requests, stock)
	result.Metrics = metrics

	if shouldPersist(r, persistDefault) {
		switch {
		case pool == nil:
			result.Warnings = append(result.Warnings, constants.ErrDBConnection+", run not stored")
		default:
			run := Run{
				RunID:             result.RunID,
				FileName:          result.FileName,
				FileHash:          result.FileHash,
				Note:              strings.TrimSpace(r.FormValue("note")),
				RowCount:          metrics.RowCount,
				TotalUnmet:        metrics.TotalUnmet,
				DispatchableCount: metrics.DispatchableCount,
				CreatedAt:         time.Now(),
			}
			if err := insertRun(r.Context(), pool, run, lines); err != nil {
				log.Printf("[WARN] cruce run %s not stored: %v", result.RunID, err)
				result.Warnings = append(result.Warnings, "run not stored: "+err.Error())
			} else {
				result.Persisted = true
			}
		}
	}

	if history != nil {
		history.Remember(result.FileHash, result.RunID.String())
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	result.Info = append(result.Info, fmt.Sprintf("reconciled %d request row(s) against %d stock row(s) in %s", len(requests), len(stock), elapsed))
	log.Printf("[INFO] cruce run %s: %d output row(s), %d dispatchable, unmet total %s (%s)",
		result.RunID, metrics.RowCount, metrics.DispatchableCount, metrics.TotalUnmet.String(), elapsed)
	return result, lines, true
}

// openProcessUploads opens the workbook(s) for a run. Single-file mode
// returns the same upload twice.
func openProcessUploads(r *http.Request) (*uploadedWorkbook, *uploadedWorkbook, error) {
	if fh, ok := formFile(r, "file"); ok {
		up, err := openWorkbook(fh)
		if err != nil {
			return nil, nil, err
		}
		return up, up, nil
	}
	reqFH, okReq := formFile(r, "requests_file")
	stockFH, okStock := formFile(r, "stock_file")
	if !okReq || !okStock {
		return nil, nil, errors.New(constants.ErrMissingUploadFile)
	}
	reqUp, err := openWorkbook(reqFH)
	if err != nil {
		return nil, nil, err
	}
	stockUp, err := openWorkbook(stockFH)
	if err != nil {
		reqUp.Cleanup()
		return nil, nil, err
	}
	return reqUp, stockUp, nil
}

// resolveUserMap picks the column mapping for one side: an inline JSON map
// wins, then a stored preset by name, then nil to let the guesses decide.
func resolveUserMap(r *http.Request, db *sql.DB, mappingField, presetField, side string) (map[string]string, error) {
	userMap, err := parseMappingParam(r, mappingField)
	if err != nil {
		return nil, err
	}
	if userMap != nil {
		return userMap, nil
	}
	name := strings.TrimSpace(r.FormValue(presetField))
	if name == "" {
		return nil, nil
	}
	if db == nil {
		return nil, errors.New(constants.ErrDBConnection)
	}
	return fetchPreset(db, name, side)
}

func mappingErrorStatus(err error) int {
	if strings.Contains(err.Error(), constants.ErrDBConnection) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func shouldPersist(r *http.Request, def bool) bool {
	raw := strings.TrimSpace(r.FormValue("persist"))
	if raw == "" {
		return def
	}
	persist, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return persist
}

// countUnmatchedCodes reports how many distinct requested codes the stock
// table never mentions. Their lines come out fully unmet; the count makes
// the gap visible up front instead of only row by row.
func countUnmatchedCodes(requests []allocation.RequestLine, stock []allocation.StockEntry) int {
	known := make(map[string]bool, len(stock))
	for _, entry := range stock {
		known[entry.MaterialCode] = true
	}
	counted := make(map[string]bool)
	n := 0
	for _, req := range requests {
		if !known[req.MaterialCode] && !counted[req.MaterialCode] {
			counted[req.MaterialCode] = true
			n++
		}
	}
	return n
}

// planHeader is the canonical dispatch-plan schema. The crossing resolver
// recognizes these names, so an exported plan feeds straight back in.
var planHeader = []string{
	mapping.FieldItemID,
	mapping.FieldMaterialCode,
	mapping.FieldMaterialDescription,
	mapping.FieldSiteCode,
	mapping.FieldPlanName,
	mapping.FieldRequestedQty,
	mapping.FieldStockDescription,
	"allocated_qty",
	"unmet_qty",
	"dispatchable",
}

func planRows(lines []allocation.OutputLine) [][]interface{} {
	rows := make([][]interface{}, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []interface{}{
			l.ItemID,
			l.MaterialCode,
			l.MaterialDescription,
			l.SiteCode,
			l.PlanName,
			l.RequestedQty.InexactFloat64(),
			l.StockDescription,
			l.AllocatedQty.InexactFloat64(),
			l.UnmetQty.InexactFloat64(),
			l.Dispatchable,
		})
	}
	return rows
}
