package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/repositories"
	"github.com/devank/tmplhub/pkg/templates"
)

// RenderResult is what the render entry point returns to callers: the
// substituted content plus the metadata of the version that produced it.
type RenderResult struct {
	Subject      string `json:"subject,omitempty"`
	Body         string `json:"body"`
	TemplateName string `json:"template_name"`
	TemplateType string `json:"template_type"`
	Language     string `json:"language"`
	Version      int    `json:"version"`
	IsHTML       bool   `json:"is_html"`
}

type CompleteEmail struct {
	FromEmail   string `json:"from_email"`
	ToEmail     string `json:"to_email"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// TemplateService is the read/render path. The cache is a best-effort
// accelerator: every cache failure degrades to a direct store lookup, and
// running with a nil cache gives identical render output.
type TemplateService struct {
	repo     *repositories.TemplateRepository
	logs     *repositories.RenderLogRepository
	cache    cache.TemplateCache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewTemplateService(db *gorm.DB, c cache.TemplateCache, cacheTTL time.Duration, log *zap.Logger) *TemplateService {
	return &TemplateService{
		repo:     repositories.NewTemplateRepository(db),
		logs:     repositories.NewRenderLogRepository(db),
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// GetTemplate resolves the active version for the tuple, through the cache
// when useCache is set.
func (s *TemplateService) GetTemplate(ctx context.Context, name, language, templateType string, useCache bool) (*models.Template, error) {
	language, templateType = applyDefaults(language, templateType)

	if useCache && s.cache != nil {
		t, err := s.cache.Get(ctx, name, language, templateType)
		if err != nil {
			metrics.TemplateCacheErrorsTotal.Inc()
			s.log.Warn("template cache unavailable, falling back to store",
				zap.String("name", name),
				zap.Error(err),
			)
		} else if t != nil {
			metrics.TemplateCacheHitsTotal.WithLabelValues(templateType).Inc()
			return t, nil
		} else {
			metrics.TemplateCacheMissesTotal.WithLabelValues(templateType).Inc()
		}
	}

	t, err := s.repo.GetActive(ctx, name, language, templateType)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, templates.NewNotFound("template not found: %s (%s, %s)", name, language, templateType)
	}

	if useCache && s.cache != nil {
		if err := s.cache.Put(ctx, name, language, templateType, t, s.cacheTTL); err != nil {
			metrics.TemplateCacheErrorsTotal.Inc()
			s.log.Warn("failed to cache template", zap.String("name", name), zap.Error(err))
		}
	}
	return t, nil
}

// RenderTemplate resolves, renders, and audit-logs one attempt. Exactly one
// render log row is written whether the attempt succeeds or fails.
func (s *TemplateService) RenderTemplate(ctx context.Context, name string, renderContext map[string]any, language, templateType, requestedBy string) (*RenderResult, error) {
	language, templateType = applyDefaults(language, templateType)
	timer := prometheus.NewTimer(metrics.TemplateRenderDuration.WithLabelValues(templateType))
	defer timer.ObserveDuration()

	t, err := s.GetTemplate(ctx, name, language, templateType, true)
	if err != nil {
		s.recordAttempt(ctx, nil, renderContext, "", "", err, requestedBy)
		metrics.TemplateRendersTotal.WithLabelValues(templateType, "failed").Inc()
		return nil, err
	}

	if t.Content == nil {
		rerr := templates.NewRender("template %s v%d has no content", t.Name, t.Version)
		s.recordAttempt(ctx, t, renderContext, "", "", rerr, requestedBy)
		metrics.TemplateRendersTotal.WithLabelValues(templateType, "failed").Inc()
		return nil, rerr
	}

	rendered, rerr := templates.Render(t.Content.Subject, t.Content.Body, t.Content.IsHTML, renderContext)
	if rerr != nil {
		s.recordAttempt(ctx, t, renderContext, "", "", rerr, requestedBy)
		metrics.TemplateRendersTotal.WithLabelValues(templateType, "failed").Inc()
		s.log.Error("failed to render template",
			zap.String("name", name),
			zap.String("language", language),
			zap.String("template_type", templateType),
			zap.Error(rerr),
		)
		return nil, rerr
	}

	s.recordAttempt(ctx, t, renderContext, rendered.Subject, rendered.Body, nil, requestedBy)
	metrics.TemplateRendersTotal.WithLabelValues(templateType, "success").Inc()
	s.log.Info("rendered template",
		zap.String("name", name),
		zap.Int("version", t.Version),
		zap.String("requested_by", requestedBy),
	)

	return &RenderResult{
		Subject:      rendered.Subject,
		Body:         rendered.Body,
		TemplateName: t.Name,
		TemplateType: t.TemplateType,
		Language:     t.Language,
		Version:      t.Version,
		IsHTML:       t.Content.IsHTML,
	}, nil
}

// RenderCompleteEmail renders an email template and wraps the result in a
// ready-to-send envelope using from_email/to_email from the context.
func (s *TemplateService) RenderCompleteEmail(ctx context.Context, name string, renderContext map[string]any, language, requestedBy string) (*CompleteEmail, error) {
	result, err := s.RenderTemplate(ctx, name, renderContext, language, models.TemplateTypeEmail, requestedBy)
	if err != nil {
		return nil, err
	}

	contentType := "text/plain"
	if result.IsHTML {
		contentType = "text/html"
	}
	return &CompleteEmail{
		FromEmail:   stringValue(renderContext["from_email"], "noreply@company.com"),
		ToEmail:     stringValue(renderContext["to_email"], ""),
		Subject:     result.Subject,
		Body:        result.Body,
		ContentType: contentType,
	}, nil
}

// GetAvailableVariables returns the variables the active version's content
// references.
func (s *TemplateService) GetAvailableVariables(ctx context.Context, name, language, templateType string) ([]string, error) {
	t, err := s.GetTemplate(ctx, name, language, templateType, true)
	if err != nil {
		return nil, err
	}
	if t.Content == nil {
		return []string{}, nil
	}
	return []string(t.Content.ExtractedVariables), nil
}

// ValidateContext reports which required variables the context is missing.
// Rendering is not blocked by missing variables, this is for warnings.
func (s *TemplateService) ValidateContext(ctx context.Context, name, language, templateType string, renderContext map[string]any) ([]string, error) {
	t, err := s.GetTemplate(ctx, name, language, templateType, true)
	if err != nil {
		return nil, err
	}
	if t.Content == nil {
		return []string{}, nil
	}
	return templates.ValidateContext([]string(t.Content.ExtractedVariables), renderContext), nil
}

// GetRenderLogs returns recent audit entries for the active version.
func (s *TemplateService) GetRenderLogs(ctx context.Context, name, language, templateType string, limit int) ([]models.RenderLog, error) {
	t, err := s.GetTemplate(ctx, name, language, templateType, false)
	if err != nil {
		return nil, err
	}
	return s.logs.ListByTemplate(ctx, t.ID, limit)
}

// recordAttempt writes the audit row for one render attempt. It is
// best-effort: a failed write is logged and swallowed so it never replaces
// the render outcome returned to the caller.
func (s *TemplateService) recordAttempt(ctx context.Context, t *models.Template, renderContext map[string]any, subject, body string, renderErr error, requestedBy string) {
	entry := &models.RenderLog{
		ContextUsed:     datatypes.JSONMap(renderContext),
		RenderedSubject: subject,
		RenderedBody:    body,
		Success:         renderErr == nil,
		RequestedBy:     requestedBy,
	}
	if t != nil {
		id := t.ID
		entry.TemplateID = &id
	}
	if renderErr != nil {
		entry.ErrorMessage = renderErr.Error()
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		s.log.Warn("failed to write render log", zap.Error(err))
	}
}

func applyDefaults(language, templateType string) (string, string) {
	if language == "" {
		language = models.DefaultLanguage
	}
	if templateType == "" {
		templateType = models.TemplateTypeEmail
	}
	return language, templateType
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
