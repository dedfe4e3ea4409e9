package cruce

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"CruceMaterialSap/api/constants"
)

// MappingPreset is a named, stored column mapping for one side of a run, so
// recurring SAP exports don't need the mapping JSON resent every time.
type MappingPreset struct {
	PresetID  int64             `json:"preset_id"`
	Name      string            `json:"name"`
	Side      string            `json:"side"`
	Mapping   map[string]string `json:"mapping"`
	CreatedAt time.Time         `json:"created_at"`
}

// SavePreset creates or replaces a preset keyed by (name, side).
func SavePreset(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		var req struct {
			Name    string            `json:"name"`
			Side    string            `json:"side"`
			Mapping map[string]string `json:"mapping"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Side = strings.ToLower(strings.TrimSpace(req.Side))
		if req.Name == "" || len(req.Mapping) == 0 {
			httpError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if req.Side != constants.PresetSideRequests && req.Side != constants.PresetSideStock {
			httpError(w, http.StatusBadRequest, constants.ErrInvalidPresetSide)
			return
		}
		mappingJSON, err := json.Marshal(req.Mapping)
		if err != nil {
			httpError(w, http.StatusBadRequest, constants.ErrInvalidMappingJSON)
			return
		}

		preset := MappingPreset{Name: req.Name, Side: req.Side, Mapping: req.Mapping}
		err = db.QueryRow(`
			INSERT INTO cruce_mapping_presets (name, side, mapping)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, side) DO UPDATE SET mapping = EXCLUDED.mapping
			RETURNING preset_id, created_at
		`, req.Name, req.Side, string(mappingJSON)).Scan(&preset.PresetID, &preset.CreatedAt)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{"success": true, "preset": preset})
	}
}

// ListPresets returns stored presets, optionally filtered by ?side=.
func ListPresets(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		side := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side")))
		if side != "" && side != constants.PresetSideRequests && side != constants.PresetSideStock {
			httpError(w, http.StatusBadRequest, constants.ErrInvalidPresetSide)
			return
		}

		query := `SELECT preset_id, name, side, mapping::text, created_at FROM cruce_mapping_presets`
		args := []interface{}{}
		if side != "" {
			query += ` WHERE side = $1`
			args = append(args, side)
		}
		query += ` ORDER BY name, side`

		rows, err := db.Query(query, args...)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		presets := make([]MappingPreset, 0, 8)
		for rows.Next() {
			var p MappingPreset
			var raw string
			if err := rows.Scan(&p.PresetID, &p.Name, &p.Side, &raw, &p.CreatedAt); err != nil {
				httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			if err := json.Unmarshal([]byte(raw), &p.Mapping); err != nil {
				httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			presets = append(presets, p)
		}
		writeJSON(w, map[string]interface{}{"success": true, "presets": presets})
	}
}

// DeletePreset removes a preset by id.
func DeletePreset(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid preset id: "+err.Error())
			return
		}
		if db == nil {
			httpError(w, http.StatusInternalServerError, constants.ErrDBConnection)
			return
		}
		res, err := db.Exec(`DELETE FROM cruce_mapping_presets WHERE preset_id = $1`, id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			httpError(w, http.StatusNotFound, constants.ErrPresetNotFound)
			return
		}
		writeJSON(w, map[string]interface{}{"success": true, "deleted": id})
	}
}

// fetchPreset loads one preset's mapping for use during a run.
func fetchPreset(db *sql.DB, name, side string) (map[string]string, error) {
	var raw string
	err := db.QueryRow(`
		SELECT mapping::text FROM cruce_mapping_presets WHERE name = $1 AND side = $2
	`, name, side).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %s (%s)", constants.ErrPresetNotFound, name, side)
	}
	if err != nil {
		return nil, fmt.Errorf("%s%v", constants.ErrQueryFailed, err)
	}
	m := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%s: %v", constants.ErrInvalidMappingJSON, err)
	}
	return m, nil
}
