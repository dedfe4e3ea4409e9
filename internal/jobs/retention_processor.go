package jobs

import (
	"context"
	"fmt"
	"time"

	"CruceMaterialSap/internal/config"
	"CruceMaterialSap/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// RetentionConfig holds configuration for the stored-run purge job
type RetentionConfig struct {
	Schedule   string
	MaxAgeDays int
	BatchSize  int
	TimeZone   string
}

// NewDefaultRetentionConfig creates a RetentionConfig with default values
func NewDefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Schedule:   config.DefaultRetentionSchedule,
		MaxAgeDays: config.RetentionDays,
		BatchSize:  config.RetentionBatchSize,
		TimeZone:   config.DefaultTimeZone,
	}
}

// RunRetentionScheduler starts the cron job that purges expired runs. The
// returned cron keeps running until stopped by the owning service.
func RunRetentionScheduler(cfg *RetentionConfig, db *pgxpool.Pool) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultRetentionSchedule
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = config.RetentionDays
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.RetentionBatchSize
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, func() {
		purged, err := PurgeExpiredRuns(db, cfg.MaxAgeDays, cfg.BatchSize)
		if err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Run retention purge failed: %v", err))
			return
		}
		if purged > 0 {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Run retention purged %d run(s) older than %d days", purged, cfg.MaxAgeDays))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule run retention: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit("Run retention scheduler started")

	return c, nil
}

// PurgeExpiredRuns deletes stored runs older than maxAgeDays in batches so a
// long backlog never holds one long transaction. Run lines cascade with
// their run.
func PurgeExpiredRuns(db *pgxpool.Pool, maxAgeDays, batchSize int) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var total int64
	for {
		tag, err := db.Exec(ctx, `
			DELETE FROM cruce_runs
			WHERE run_id IN (
				SELECT run_id FROM cruce_runs
				WHERE created_at < $1
				ORDER BY created_at
				LIMIT $2
			)
		`, cutoff, batchSize)
		if err != nil {
			return total, err
		}
		n := tag.RowsAffected()
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
