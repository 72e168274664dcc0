package types

import "github.com/google/uuid"

// RenderRequest is the payload queued for the render worker. Trace context
// travels in Kafka message headers, not in the payload.
type RenderRequest struct {
	TaskID       uuid.UUID      `json:"task_id"`
	TemplateName string         `json:"template_name"`
	Language     string         `json:"language"`
	TemplateType string         `json:"template_type"`
	Context      map[string]any `json:"context"`
	RequestedBy  string         `json:"requested_by,omitempty"`
}
