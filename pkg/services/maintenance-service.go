package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/repositories"
)

type HealthStatus struct {
	Status          string    `json:"status"`
	Database        string    `json:"database"`
	Cache           string    `json:"cache"`
	ActiveTemplates int64     `json:"active_templates"`
	Timestamp       time.Time `json:"timestamp"`
}

// MaintenanceService holds the operations the background scheduler drives:
// cache warmup, render log retention, health reporting.
type MaintenanceService struct {
	repo      *repositories.TemplateRepository
	logs      *repositories.RenderLogRepository
	cache     cache.TemplateCache
	warmTTL   time.Duration
	batchSize int
	log       *zap.Logger
}

func NewMaintenanceService(db *gorm.DB, c cache.TemplateCache, warmTTL time.Duration, batchSize int, log *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		repo:      repositories.NewTemplateRepository(db),
		logs:      repositories.NewRenderLogRepository(db),
		cache:     c,
		warmTTL:   warmTTL,
		batchSize: batchSize,
		log:       log,
	}
}

// WarmCache populates the cache with up to topN active templates. Returns
// how many were cached; individual put failures are skipped.
func (s *MaintenanceService) WarmCache(ctx context.Context, topN int) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	tmpls, err := s.repo.ListActive(ctx, topN)
	if err != nil {
		return 0, err
	}

	warmed := 0
	for i := range tmpls {
		t := &tmpls[i]
		if err := s.cache.Put(ctx, t.Name, t.Language, t.TemplateType, t, s.warmTTL); err != nil {
			s.log.Warn("failed to warm cache entry", zap.String("name", t.Name), zap.Error(err))
			continue
		}
		warmed++
	}

	s.log.Info("warmed template cache", zap.Int("templates_cached", warmed))
	return warmed, nil
}

// CleanupOldLogs deletes render logs older than the retention window, in
// batches so no single transaction grows unbounded.
func (s *MaintenanceService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.logs.DeleteOlderThan(ctx, cutoff, s.batchSize)
	if err != nil {
		return deleted, err
	}

	metrics.RenderLogsDeletedTotal.Add(float64(deleted))
	s.log.Info("cleaned up old render logs",
		zap.Int64("logs_deleted", deleted),
		zap.Int("days_retained", retentionDays),
	)
	return deleted, nil
}

// HealthCheck reports store and cache reachability. A dead cache degrades
// the status, a dead store makes it unhealthy.
func (s *MaintenanceService) HealthCheck(ctx context.Context) HealthStatus {
	st := HealthStatus{
		Status:    "healthy",
		Database:  "connected",
		Cache:     "connected",
		Timestamp: time.Now().UTC(),
	}

	count, err := s.repo.CountActive(ctx)
	if err != nil {
		st.Status = "unhealthy"
		st.Database = "disconnected"
	} else {
		st.ActiveTemplates = count
	}

	if s.cache == nil {
		st.Cache = "disabled"
	} else if err := s.cache.Ping(ctx); err != nil {
		st.Cache = "disconnected"
		if st.Status == "healthy" {
			st.Status = "degraded"
		}
	}
	return st
}
