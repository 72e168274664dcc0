package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/pkg/models"
)

const defaultCleanupBatchSize = 1000

// RenderLogRepository is the append-only audit trail of render attempts.
type RenderLogRepository struct {
	db *gorm.DB
}

func NewRenderLogRepository(db *gorm.DB) *RenderLogRepository {
	return &RenderLogRepository{db: db}
}

func (r *RenderLogRepository) Create(ctx context.Context, log *models.RenderLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *RenderLogRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]models.RenderLog, error) {
	var out []models.RenderLog
	q := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RenderLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RenderLog{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes logs created before cutoff in batches, so the
// retention sweep never holds one large delete transaction. Returns the
// number of rows removed.
func (r *RenderLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = defaultCleanupBatchSize
	}

	var total int64
	for {
		var ids []uuid.UUID
		err := r.db.WithContext(ctx).
			Model(&models.RenderLog{}).
			Where("created_at < ?", cutoff).
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.RenderLog{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected

		if len(ids) < batchSize {
			return total, nil
		}
	}
}
