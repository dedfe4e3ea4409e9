package cruce

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"CruceMaterialSap/internal/config"
	"CruceMaterialSap/internal/jobs"
	"CruceMaterialSap/internal/serviceiface"
)

type CruceService struct {
	config map[string]interface{}
	db     *sql.DB
	pool   *pgxpool.Pool
	server *http.Server
	cron   *cron.Cron
}

func NewCruceService(cfg map[string]interface{}, db *sql.DB, pool *pgxpool.Pool) serviceiface.Service {
	return &CruceService{config: cfg, db: db, pool: pool}
}

func (s *CruceService) Name() string {
	return "cruce"
}

func (s *CruceService) Start() error {
	if s.pool == nil {
		s.pool = DialPool()
	}
	if s.pool != nil {
		retentionConfig := jobs.NewDefaultRetentionConfig()
		if s.config != nil {
			if schedule, ok := s.config["retention_schedule"].(string); ok && schedule != "" {
				retentionConfig.Schedule = schedule
			}
			if days, ok := s.config["retention_days"].(int); ok && days > 0 {
				retentionConfig.MaxAgeDays = days
			}
		}
		c, err := jobs.RunRetentionScheduler(retentionConfig, s.pool)
		if err != nil {
			log.Printf("[WARN] cruce: retention scheduler not started: %v", err)
		} else {
			s.cron = c
		}
	}

	s.server = NewCruceServer(s.db, s.pool)
	go func() {
		log.Printf("Cruce Service started on :%d", config.CrucePort)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Cruce Service failed: %v", err)
		}
	}()
	return nil
}

func (s *CruceService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.server != nil {
		_ = s.server.Shutdown(context.Background())
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
