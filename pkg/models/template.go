package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/pkg/templates"
)

const (
	TemplateTypeEmail = "email"
	TemplateTypePush  = "push"

	DefaultLanguage = "en"
)

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	languagePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
)

// Template is one version of a named notification template. At most one row
// per (name, language, template_type) tuple has is_active = true at any time;
// (name, language, version) is unique.
type Template struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string           `gorm:"size:200;not null;index:idx_templates_lookup;uniqueIndex:idx_templates_name_lang_version" json:"name"`
	Language     string           `gorm:"size:10;not null;default:'en';index:idx_templates_lookup;uniqueIndex:idx_templates_name_lang_version" json:"language"`
	TemplateType string           `gorm:"type:varchar(20);not null;index" json:"template_type"`
	Version      int              `gorm:"not null;default:1;uniqueIndex:idx_templates_name_lang_version" json:"version"`
	IsActive     bool             `gorm:"not null;default:true;index" json:"is_active"`
	Description  string           `gorm:"type:text" json:"description,omitempty"`
	Content      *TemplateContent `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"content,omitempty"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Validate checks the identifying fields against the patterns the store
// enforces. Content presence is checked by the callers that require it.
func (t *Template) Validate() error {
	if t.Name == "" || !namePattern.MatchString(t.Name) {
		return templates.NewValidation("name", "name can only contain letters, numbers, underscores, and hyphens")
	}
	if !languagePattern.MatchString(t.Language) {
		return templates.NewValidation("language", "language code should be in format like \"en\" or \"en-US\"")
	}
	if t.TemplateType != TemplateTypeEmail && t.TemplateType != TemplateTypePush {
		return templates.NewValidation("template_type", "template type must be %q or %q", TemplateTypeEmail, TemplateTypePush)
	}
	return nil
}

// TemplateContent is the immutable payload owned 1:1 by a template version.
// ExtractedVariables is recomputed from subject and body on every save and is
// never settable independently.
type TemplateContent struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"template_id"`
	Subject            string                      `gorm:"size:255" json:"subject,omitempty"`
	Body               string                      `gorm:"type:text;not null" json:"body"`
	IsHTML             bool                        `gorm:"column:is_html;not null;default:true" json:"is_html"`
	ExtractedVariables datatypes.JSONSlice[string] `gorm:"column:extracted_variables" json:"extracted_variables"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

func (c *TemplateContent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *TemplateContent) BeforeSave(tx *gorm.DB) error {
	c.ExtractedVariables = templates.ExtractContentVariables(c.Subject, c.Body)
	return nil
}

// RenderLog records one render attempt, success or failure. TemplateID is
// nil when the attempt failed before a version could be resolved. Rows are
// immutable and swept by the retention job.
type RenderLog struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID      *uuid.UUID         `gorm:"type:uuid;index:idx_render_logs_template_created" json:"template_id,omitempty"`
	Template        *Template          `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"-"`
	ContextUsed     datatypes.JSONMap  `gorm:"column:context_used" json:"context_used"`
	RenderedSubject string             `gorm:"type:text" json:"rendered_subject,omitempty"`
	RenderedBody    string             `gorm:"type:text" json:"rendered_body"`
	Success         bool               `gorm:"not null;default:true;index:idx_render_logs_success_created" json:"success"`
	ErrorMessage    string             `gorm:"type:text" json:"error_message,omitempty"`
	RequestedBy     string             `gorm:"size:100" json:"requested_by,omitempty"`
	CreatedAt       time.Time          `gorm:"autoCreateTime;index:idx_render_logs_template_created;index:idx_render_logs_success_created" json:"created_at"`
}

func (l *RenderLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
