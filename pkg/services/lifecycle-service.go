package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/repositories"
	"github.com/devank/tmplhub/pkg/templates"
)

type CreateTemplateInput struct {
	Name         string `json:"name" binding:"required"`
	Language     string `json:"language"`
	TemplateType string `json:"template_type"`
	Subject      string `json:"subject"`
	Body         string `json:"body" binding:"required"`
	IsHTML       *bool  `json:"is_html"`
	Description  string `json:"description"`
}

// LifecycleService owns every version mutation: first version, supersede,
// rollback, in-place content edit. Each mutation invalidates the cache
// before it is considered complete, and mutations on the same tuple are
// serialized through a per-tuple lock on top of the store's transaction.
type LifecycleService struct {
	repo  *repositories.TemplateRepository
	cache cache.TemplateCache
	log   *zap.Logger

	mu     sync.Mutex
	tuples map[string]*sync.Mutex
}

func NewLifecycleService(db *gorm.DB, c cache.TemplateCache, log *zap.Logger) *LifecycleService {
	return &LifecycleService{
		repo:   repositories.NewTemplateRepository(db),
		cache:  c,
		log:    log,
		tuples: make(map[string]*sync.Mutex),
	}
}

func (s *LifecycleService) tupleLock(name, language, templateType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cache.Key(name, language, templateType)
	lock, exists := s.tuples[key]
	if !exists {
		lock = &sync.Mutex{}
		s.tuples[key] = lock
	}
	return lock
}

// CreateOrSupersede creates version 1 when the tuple has no active template,
// otherwise deactivates the current version and creates its successor.
func (s *LifecycleService) CreateOrSupersede(ctx context.Context, in CreateTemplateInput) (*models.Template, error) {
	in.Language, in.TemplateType = applyDefaults(in.Language, in.TemplateType)

	t := &models.Template{Name: in.Name, Language: in.Language, TemplateType: in.TemplateType}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, templates.NewValidation("body", "body is required")
	}

	isHTML := true
	if in.IsHTML != nil {
		isHTML = *in.IsHTML
	}
	content := &models.TemplateContent{Subject: in.Subject, Body: in.Body, IsHTML: isHTML}

	lock := s.tupleLock(in.Name, in.Language, in.TemplateType)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.repo.GetActive(ctx, in.Name, in.Language, in.TemplateType)
	if err != nil {
		return nil, err
	}

	var result *models.Template
	if current == nil {
		t.Description = in.Description
		t.Content = content
		if err := s.repo.CreateInitial(ctx, t); err != nil {
			return nil, err
		}
		result = t
	} else {
		result, err = s.repo.CreateVersion(ctx, current, content, in.Description)
		if err != nil {
			return nil, err
		}
	}

	metrics.TemplateVersionsCreatedTotal.WithLabelValues(in.TemplateType).Inc()
	s.invalidate(ctx, in.Name, in.Language, in.TemplateType)
	s.log.Info("created template version",
		zap.String("name", in.Name),
		zap.String("language", in.Language),
		zap.String("template_type", in.TemplateType),
		zap.Int("version", result.Version),
	)
	return result, nil
}

// Rollback reactivates an existing older version without creating a new
// version row.
func (s *LifecycleService) Rollback(ctx context.Context, name, language, templateType string, targetVersion int) (*models.Template, error) {
	language, templateType = applyDefaults(language, templateType)

	lock := s.tupleLock(name, language, templateType)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.repo.ActivateVersion(ctx, name, language, templateType, targetVersion)
	if err != nil {
		return nil, err
	}

	metrics.TemplateRollbacksTotal.WithLabelValues(templateType).Inc()
	s.invalidate(ctx, name, language, templateType)
	s.log.Info("rolled back template",
		zap.String("name", name),
		zap.String("language", language),
		zap.Int("version", targetVersion),
	)
	return t, nil
}

// UpdateActiveContent edits the active version's content in place, without
// a version bump. The cache entry still has to go, same as any other
// mutation.
func (s *LifecycleService) UpdateActiveContent(ctx context.Context, name, language, templateType, subject, body string, isHTML bool) (*models.Template, error) {
	language, templateType = applyDefaults(language, templateType)
	if strings.TrimSpace(body) == "" {
		return nil, templates.NewValidation("body", "body is required")
	}

	lock := s.tupleLock(name, language, templateType)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.repo.UpdateActiveContent(ctx, name, language, templateType, subject, body, isHTML)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, name, language, templateType)
	s.log.Info("updated active template content",
		zap.String("name", name),
		zap.String("language", language),
		zap.Int("version", t.Version),
	)
	return t, nil
}

// ListVersions returns the version history for (name, language), newest
// first.
func (s *LifecycleService) ListVersions(ctx context.Context, name, language string) ([]models.Template, error) {
	if language == "" {
		language = models.DefaultLanguage
	}
	return s.repo.ListVersions(ctx, name, language)
}

// DeleteVersion removes an inactive version and its content.
func (s *LifecycleService) DeleteVersion(ctx context.Context, name, language, templateType string, version int) error {
	language, templateType = applyDefaults(language, templateType)

	lock := s.tupleLock(name, language, templateType)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.repo.GetVersion(ctx, name, language, templateType, version)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, t.ID)
}

// invalidate is part of every mutation's contract. A failed invalidation is
// logged, not returned: the store is already committed, and a stale entry
// lives at most one TTL window.
func (s *LifecycleService) invalidate(ctx context.Context, name, language, templateType string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, name, language, templateType); err != nil {
		metrics.TemplateCacheErrorsTotal.Inc()
		s.log.Error("cache invalidation failed",
			zap.String("name", name),
			zap.String("language", language),
			zap.String("template_type", templateType),
			zap.Error(err),
		)
	}
}
