package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/templates"
)

// TemplateRepository is the single source of truth for template versions.
// All version mutations run in a transaction so there is never a window
// with zero or two active rows for a tuple.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// withRowLock adds FOR UPDATE on Postgres. Sqlite serializes writers on its
// own and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// GetActive returns the unique active version for the tuple, or nil when
// none exists.
func (r *TemplateRepository) GetActive(ctx context.Context, name, language, templateType string) (*models.Template, error) {
	var t models.Template
	err := r.db.WithContext(ctx).
		Preload("Content").
		Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", name, language, templateType, true).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetVersion returns one specific version for the tuple, or a not-found
// error.
func (r *TemplateRepository) GetVersion(ctx context.Context, name, language, templateType string, version int) (*models.Template, error) {
	var t models.Template
	err := r.db.WithContext(ctx).
		Preload("Content").
		Where("name = ? AND language = ? AND template_type = ? AND version = ?", name, language, templateType, version).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, templates.NewNotFound("version %d of template %s (%s, %s) does not exist", version, name, language, templateType)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListVersions returns every version for (name, language), newest first.
func (r *TemplateRepository) ListVersions(ctx context.Context, name, language string) ([]models.Template, error) {
	var out []models.Template
	err := r.db.WithContext(ctx).
		Preload("Content").
		Where("name = ? AND language = ?", name, language).
		Order("version DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInitial inserts version 1 for a tuple that has no active template.
// The template's Content must be set; variables are extracted on save.
func (r *TemplateRepository) CreateInitial(ctx context.Context, t *models.Template) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Template
		err := withRowLock(tx).
			Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", t.Name, t.Language, t.TemplateType, true).
			First(&existing).Error
		if err == nil {
			return templates.NewConflict("an active template already exists for %s (%s, %s)", t.Name, t.Language, t.TemplateType)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		t.Version = 1
		t.IsActive = true
		return tx.Create(t).Error
	})
}

// CreateVersion deactivates the current active version and inserts its
// successor with version+1 in one transaction.
func (r *TemplateRepository) CreateVersion(ctx context.Context, previous *models.Template, content *models.TemplateContent, description string) (*models.Template, error) {
	var next *models.Template
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Template
		err := withRowLock(tx).
			Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", previous.Name, previous.Language, previous.TemplateType, true).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return templates.NewNotFound("no active template to supersede for %s (%s, %s)", previous.Name, previous.Language, previous.TemplateType)
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Template{}).
			Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", current.Name, current.Language, current.TemplateType, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		if description == "" {
			description = current.Description
		}
		next = &models.Template{
			Name:         current.Name,
			Language:     current.Language,
			TemplateType: current.TemplateType,
			Version:      current.Version + 1,
			IsActive:     true,
			Description:  description,
			Content:      content,
		}
		return tx.Create(next).Error
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// ActivateVersion makes targetVersion the active version for the tuple,
// deactivating whichever version currently is. Used for rollback, so no new
// version row is created.
func (r *TemplateRepository) ActivateVersion(ctx context.Context, name, language, templateType string, targetVersion int) (*models.Template, error) {
	var target models.Template
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := withRowLock(tx).
			Preload("Content").
			Where("name = ? AND language = ? AND template_type = ? AND version = ?", name, language, templateType, targetVersion).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return templates.NewNotFound("version %d of template %s (%s, %s) does not exist", targetVersion, name, language, templateType)
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Template{}).
			Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", name, language, templateType, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		target.IsActive = true
		return tx.Model(&target).Update("is_active", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// UpdateActiveContent edits the active version's content in place, without a
// version bump. The save hook re-extracts variables.
func (r *TemplateRepository) UpdateActiveContent(ctx context.Context, name, language, templateType, subject, body string, isHTML bool) (*models.Template, error) {
	var current models.Template
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := withRowLock(tx).
			Preload("Content").
			Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", name, language, templateType, true).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return templates.NewNotFound("no active template for %s (%s, %s)", name, language, templateType)
		}
		if err != nil {
			return err
		}

		content := current.Content
		if content == nil {
			content = &models.TemplateContent{TemplateID: current.ID}
			current.Content = content
		}
		content.Subject = subject
		content.Body = body
		content.IsHTML = isHTML
		return tx.Save(content).Error
	})
	if err != nil {
		return nil, err
	}
	return &current, nil
}

// Delete removes an inactive version and its content. The active version
// cannot be deleted, roll back or supersede first.
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Template
		err := tx.Where("id = ?", id).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return templates.NewNotFound("template version %s does not exist", id)
		}
		if err != nil {
			return err
		}
		if t.IsActive {
			return templates.NewConflict("cannot delete the active version of %s (%s, %s)", t.Name, t.Language, t.TemplateType)
		}

		if err := tx.Where("template_id = ?", id).Delete(&models.TemplateContent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
}

// ListActive returns active templates across all tuples, most recently
// updated first. Used for cache warmup.
func (r *TemplateRepository) ListActive(ctx context.Context, limit int) ([]models.Template, error) {
	var out []models.Template
	q := r.db.WithContext(ctx).
		Preload("Content").
		Where("is_active = ?", true).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TemplateRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Template{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
