package cruce

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"CruceMaterialSap/api/constants"
	"CruceMaterialSap/api/cruce/allocation"
	"CruceMaterialSap/api/utils"
)

// Run is the stored header of one reconciliation run.
type Run struct {
	RunID             uuid.UUID       `json:"run_id"`
	FileName          string          `json:"file_name"`
	FileHash          string          `json:"file_hash"`
	Note              string          `json:"note,omitempty"`
	RowCount          int             `json:"row_count"`
	TotalUnmet        decimal.Decimal `json:"total_unmet"`
	DispatchableCount int             `json:"dispatchable_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

var runLineColumns = []string{
	"run_id", "ordinal",
	"item_id", "material_code", "material_description", "site_code", "plan_name",
	"requested_qty", "stock_description", "allocated_qty", "unmet_qty", "dispatchable",
}

// insertRun stores the run header and stages every output line through
// CopyFrom inside one transaction. Quantities travel as fixed-point strings;
// pgx cannot encode decimal.Decimal directly.
func insertRun(ctx context.Context, pool *pgxpool.Pool, run Run, lines []allocation.OutputLine) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("db acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s%v", constants.ErrTxStartFailed, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO cruce_runs
			(run_id, file_name, file_hash, note, row_count, total_unmet, dispatchable_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, run.RunID, run.FileName, run.FileHash, run.Note, run.RowCount,
		run.TotalUnmet.StringFixed(4), run.DispatchableCount, run.CreatedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"cruce_run_lines"},
		runLineColumns,
		pgx.CopyFromSlice(len(lines), func(i int) ([]any, error) {
			l := lines[i]
			return []any{
				run.RunID, i + 1,
				l.ItemID, l.MaterialCode, l.MaterialDescription, l.SiteCode, l.PlanName,
				l.RequestedQty.StringFixed(4), l.StockDescription,
				l.AllocatedQty.StringFixed(4), l.UnmetQty.StringFixed(4), l.Dispatchable,
			}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy run lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s%v", constants.ErrTxCommitFailed, err)
	}
	committed = true
	return nil
}

// ListRuns pages through stored run headers, newest first.
func ListRuns(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		params, err := utils.ExtractPagination(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		total, err := utils.CountTotal(db, `SELECT COUNT(*) FROM cruce_runs`)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		params.SetPaginationStats(total)

		rows, err := db.Query(`
			SELECT run_id, file_name, file_hash, COALESCE(note,''), row_count, total_unmet::text, dispatchable_count, created_at
			FROM cruce_runs
			ORDER BY created_at DESC, run_id
			LIMIT $1 OFFSET $2
		`, params.Limit, params.Offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		runs := make([]Run, 0, params.Limit)
		for rows.Next() {
			var run Run
			var unmet string
			if err := rows.Scan(&run.RunID, &run.FileName, &run.FileHash, &run.Note,
				&run.RowCount, &unmet, &run.DispatchableCount, &run.CreatedAt); err != nil {
				httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			run.TotalUnmet, _ = decimal.NewFromString(unmet)
			runs = append(runs, run)
		}
		writeJSON(w, map[string]interface{}{
			"success":    true,
			"pagination": params,
			"runs":       runs,
		})
	}
}

// GetRun returns one stored run with all its plan lines in ordinal order.
func GetRun(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runIDFromPath(w, r)
		if !ok {
			return
		}
		if pool == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		run, err := fetchRun(r.Context(), pool, id)
		if err == pgx.ErrNoRows {
			httpError(w, http.StatusNotFound, constants.ErrRunNotFound)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		lines, err := fetchRunLines(r.Context(), pool, id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{
			"success": true,
			"run":     run,
			"rows":    lines,
		})
	}
}

// ExportRun streams one stored run back out as the same XLSX a live
// process/export call would produce.
func ExportRun(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runIDFromPath(w, r)
		if !ok {
			return
		}
		if pool == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		if _, err := fetchRun(r.Context(), pool, id); err == pgx.ErrNoRows {
			httpError(w, http.StatusNotFound, constants.ErrRunNotFound)
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		lines, err := fetchRunLines(r.Context(), pool, id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		filename := fmt.Sprintf("cruce_run_%s.xlsx", id)
		writeXLSXAttachment(w, filename, "Cruce", planHeader, planRows(lines))
	}
}

// DeleteRun removes a run; its lines cascade.
func DeleteRun(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runIDFromPath(w, r)
		if !ok {
			return
		}
		if pool == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		tag, err := pool.Exec(r.Context(), `DELETE FROM cruce_runs WHERE run_id = $1`, id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			httpError(w, http.StatusNotFound, constants.ErrRunNotFound)
			return
		}
		writeJSON(w, map[string]interface{}{"success": true, "deleted": id})
	}
}

func runIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid run id: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func fetchRun(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (Run, error) {
	var run Run
	var unmet string
	err := pool.QueryRow(ctx, `
		SELECT run_id, file_name, file_hash, COALESCE(note,''), row_count, total_unmet::text, dispatchable_count, created_at
		FROM cruce_runs
		WHERE run_id = $1
	`, id).Scan(&run.RunID, &run.FileName, &run.FileHash, &run.Note,
		&run.RowCount, &unmet, &run.DispatchableCount, &run.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	run.TotalUnmet, _ = decimal.NewFromString(unmet)
	return run, nil
}

func fetchRunLines(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) ([]allocation.OutputLine, error) {
	rows, err := pool.Query(ctx, `
		SELECT item_id, material_code, material_description, site_code, plan_name,
		       requested_qty::text, stock_description, allocated_qty::text, unmet_qty::text, dispatchable
		FROM cruce_run_lines
		WHERE run_id = $1
		ORDER BY ordinal
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]allocation.OutputLine, 0, 64)
	for rows.Next() {
		var l allocation.OutputLine
		var requested, allocated, unmet string
		if err := rows.Scan(&l.ItemID, &l.MaterialCode, &l.MaterialDescription, &l.SiteCode, &l.PlanName,
			&requested, &l.StockDescription, &allocated, &unmet, &l.Dispatchable); err != nil {
			return nil, err
		}
		l.RequestedQty, _ = decimal.NewFromString(requested)
		l.AllocatedQty, _ = decimal.NewFromString(allocated)
		l.UnmetQty, _ = decimal.NewFromString(unmet)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
