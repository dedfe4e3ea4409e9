package cruce

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/allocation"
	"CruceMaterialSap/api/cruce/mapping"
	"CruceMaterialSap/api/cruce/tableio"
	"CruceMaterialSap/internal/config"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]interface{}{"success": false, "error": msg})
}

func saveTempAndHash(f multipart.File, filename string) (string, string, error) {
	tmp, err := os.CreateTemp("", "cruce-*"+filepath.Ext(filename))
	if err != nil {
		return "", "", err
	}
	defer tmp.Close()
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), f); err != nil {
		return "", "", err
	}
	return tmp.Name(), hex.EncodeToString(h.Sum(nil)), nil
}

// uploadedWorkbook is one upload parsed into sheets, with the temp copy and
// content hash kept for persistence and auditing.
type uploadedWorkbook struct {
	FileName string
	FileHash string
	TempPath string
	Workbook *tableio.Workbook
}

func (u *uploadedWorkbook) Cleanup() {
	if u != nil && u.TempPath != "" {
		_ = os.Remove(u.TempPath)
	}
}

func openWorkbook(fh *multipart.FileHeader) (*uploadedWorkbook, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	tmpPath, fileHash, err := saveTempAndHash(f, fh.Filename)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("temp save: %w", err)
	}
	tmp, err := os.Open(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("open tmp: %w", err)
	}
	defer tmp.Close()
	wb, err := tableio.ReadWorkbook(tmp, fh.Filename)
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	return &uploadedWorkbook{
		FileName: fh.Filename,
		FileHash: fileHash,
		TempPath: tmpPath,
		Workbook: wb,
	}, nil
}

// formFile returns the first uploaded file found under any of the given
// field names.
func formFile(r *http.Request, names ...string) (*multipart.FileHeader, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	for _, name := range names {
		if fhs := r.MultipartForm.File[name]; len(fhs) > 0 {
			return fhs[0], true
		}
	}
	return nil, false
}

func parseMappingParam(r *http.Request, field string) (map[string]string, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%s (%s): %v", constants.ErrInvalidMappingJSON, field, err)
	}
	return m, nil
}

func previewLimit(r *http.Request) int {
	if v := strings.TrimSpace(r.FormValue("preview_rows")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return config.PreviewRowLimit
}

func loadRequestTable(wb *tableio.Workbook, sheetParam string, userMap map[string]string) ([]allocation.RequestLine, string, int, error) {
	sheet, err := tableio.PickSheet(wb.SheetNames(), sheetParam, config.RequestSheetKeyword, 0)
	if err != nil {
		return nil, "", 0, err
	}
	header, data, err := splitSheet(wb, sheet)
	if err != nil {
		return nil, sheet, 0, err
	}
	m, err := mapping.ResolveRequestColumns(header, userMap)
	if err != nil {
		return nil, sheet, 0, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	lines, dirty := mapping.BuildRequestLines(data, m)
	return lines, sheet, dirty, nil
}

func loadStockTable(wb *tableio.Workbook, sheetParam string, userMap map[string]string, fallback int) ([]allocation.StockEntry, string, int, error) {
	sheet, err := tableio.PickSheet(wb.SheetNames(), sheetParam, config.StockSheetKeyword, fallback)
	if err != nil {
		return nil, "", 0, err
	}
	header, data, err := splitSheet(wb, sheet)
	if err != nil {
		return nil, sheet, 0, err
	}
	m, err := mapping.ResolveStockColumns(header, userMap)
	if err != nil {
		return nil, sheet, 0, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	entries, dirty := mapping.BuildStockEntries(data, m)
	return entries, sheet, dirty, nil
}

// pickFirstSheet resolves an explicit sheet name, defaulting to the first
// sheet of the upload.
func pickFirstSheet(up *uploadedWorkbook, sheetParam string) (string, error) {
	return tableio.PickSheet(up.Workbook.SheetNames(), sheetParam, "", 0)
}

func splitSheet(wb *tableio.Workbook, sheet string) ([]string, [][]string, error) {
	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, nil, err
	}
	header, data, err := tableio.SplitHeader(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	return header, data, nil
}

func writeXLSXAttachment(w http.ResponseWriter, filename, sheet string, header []string, rows [][]interface{}) {
	w.Header().Set("Content-Type", constants.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := tableio.WriteXLSX(w, sheet, header, rows); err != nil {
		log.Printf("[ERROR] xlsx export failed: %v", err)
	}
}
