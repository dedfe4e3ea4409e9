package cruce

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"CruceMaterialSap/internal/checksum"
	"CruceMaterialSap/internal/config"
)

// Router wires every cruce endpoint. It tolerates nil database handles:
// endpoints that need storage answer with a database error while the pure
// reconciliation flow keeps working.
func Router(db *sql.DB, pool *pgxpool.Pool) *mux.Router {
	router := mux.NewRouter()
	history := checksum.NewHistory(config.UploadHistorySize)

	router.HandleFunc("/cruce/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Cruce Service is active"))
	}).Methods("GET")

	router.HandleFunc("/cruce/process", ProcessUpload(db, pool, history)).Methods("POST")
	router.HandleFunc("/cruce/process/export", ProcessExport(db, pool, history)).Methods("POST")

	router.HandleFunc("/cruce/runs", ListRuns(db)).Methods("GET")
	router.HandleFunc("/cruce/runs/{id}", GetRun(pool)).Methods("GET")
	router.HandleFunc("/cruce/runs/{id}", DeleteRun(pool)).Methods("DELETE")
	router.HandleFunc("/cruce/runs/{id}/export", ExportRun(pool)).Methods("GET")

	router.HandleFunc("/cruce/presets", SavePreset(db)).Methods("POST")
	router.HandleFunc("/cruce/presets", ListPresets(db)).Methods("GET")
	router.HandleFunc("/cruce/presets/{id}", DeletePreset(db)).Methods("DELETE")

	router.HandleFunc("/cruce/crossing", CrossUpload()).Methods("POST")
	router.HandleFunc("/cruce/crossing/export", CrossExport()).Methods("POST")

	router.HandleFunc("/cruce/inspect", InspectUpload()).Methods("POST")
	router.HandleFunc("/cruce/inspect/preview", PreviewUpload()).Methods("POST")

	return router
}

// DialPool opens the pgx pool used for run persistence. CRUCE_DATABASE_URL
// wins; otherwise the DSN is composed from the DB_* variables. Returns nil
// when no DSN can be built or the pool cannot initialize — persistence then
// degrades to warnings instead of refusing uploads.
func DialPool() *pgxpool.Pool {
	dsn := strings.TrimSpace(os.Getenv("CRUCE_DATABASE_URL"))
	if dsn == "" {
		user := os.Getenv("DB_USER")
		pass := os.Getenv("DB_PASSWORD")
		host := os.Getenv("DB_HOST")
		port := os.Getenv("DB_PORT")
		name := os.Getenv("DB_NAME")
		if user == "" || pass == "" || host == "" || port == "" || name == "" {
			log.Println("[WARN] cruce: DB env vars not set, run persistence disabled")
			return nil
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Printf("[WARN] cruce: pgx pool init failed, run persistence disabled: %v", err)
		return nil
	}
	return pool
}

// NewCruceServer builds the HTTP server for the cruce endpoints.
func NewCruceServer(db *sql.DB, pool *pgxpool.Pool) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.CrucePort),
		Handler: Router(db, pool),
	}
}
