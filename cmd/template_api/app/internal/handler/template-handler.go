package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/config"
	"github.com/devank/tmplhub/pkg/kafka"
	"github.com/devank/tmplhub/pkg/services"
	"github.com/devank/tmplhub/pkg/templates"
	"github.com/devank/tmplhub/pkg/types"
)

type TemplateHandler struct {
	renderer  *services.TemplateService
	lifecycle *services.LifecycleService
	producer  *kafka.Producer
	topic     string
	log       *zap.Logger
}

func NewTemplateHandler(db *gorm.DB, c cache.TemplateCache, producer *kafka.Producer, cfg *config.Config, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		renderer:  services.NewTemplateService(db, c, cfg.CacheTTL(), log),
		lifecycle: services.NewLifecycleService(db, c, log),
		producer:  producer,
		topic:     cfg.RenderTopic,
		log:       log,
	}
}

func statusForError(err error) int {
	switch {
	case templates.IsKind(err, templates.KindNotFound):
		return http.StatusNotFound
	case templates.IsKind(err, templates.KindConflict):
		return http.StatusConflict
	case templates.IsKind(err, templates.KindValidation):
		return http.StatusBadRequest
	case templates.IsKind(err, templates.KindSyntax), templates.IsKind(err, templates.KindRender):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *TemplateHandler) CreateOrSupersede(c *gin.Context) {
	var in services.CreateTemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl, err := h.lifecycle.CreateOrSupersede(c.Request.Context(), in)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, tmpl)
}

func (h *TemplateHandler) GetActive(c *gin.Context) {
	tmpl, err := h.renderer.GetTemplate(c.Request.Context(), c.Param("name"), c.Query("language"), c.Query("type"), true)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) ListVersions(c *gin.Context) {
	versions, err := h.lifecycle.ListVersions(c.Request.Context(), c.Param("name"), c.Query("language"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

type updateContentBody struct {
	Language     string `json:"language"`
	TemplateType string `json:"template_type"`
	Subject      string `json:"subject"`
	Body         string `json:"body" binding:"required"`
	IsHTML       *bool  `json:"is_html"`
}

func (h *TemplateHandler) UpdateContent(c *gin.Context) {
	var body updateContentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isHTML := true
	if body.IsHTML != nil {
		isHTML = *body.IsHTML
	}

	tmpl, err := h.lifecycle.UpdateActiveContent(c.Request.Context(), c.Param("name"), body.Language, body.TemplateType, body.Subject, body.Body, isHTML)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

type rollbackBody struct {
	Language     string `json:"language"`
	TemplateType string `json:"template_type"`
	Version      int    `json:"version" binding:"required"`
}

func (h *TemplateHandler) Rollback(c *gin.Context) {
	var body rollbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl, err := h.lifecycle.Rollback(c.Request.Context(), c.Param("name"), body.Language, body.TemplateType, body.Version)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) DeleteVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	if err := h.lifecycle.DeleteVersion(c.Request.Context(), c.Param("name"), c.Query("language"), c.Query("type"), version); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

func (h *TemplateHandler) GetVariables(c *gin.Context) {
	vars, err := h.renderer.GetAvailableVariables(c.Request.Context(), c.Param("name"), c.Query("language"), c.Query("type"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"variables": vars})
}

type validateBody struct {
	Language     string         `json:"language"`
	TemplateType string         `json:"template_type"`
	Context      map[string]any `json:"context"`
}

func (h *TemplateHandler) ValidateContext(c *gin.Context) {
	var body validateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	missing, err := h.renderer.ValidateContext(c.Request.Context(), c.Param("name"), body.Language, body.TemplateType, body.Context)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": len(missing) == 0, "missing_variables": missing})
}

type renderBody struct {
	Language     string         `json:"language"`
	TemplateType string         `json:"template_type"`
	Context      map[string]any `json:"context"`
	RequestedBy  string         `json:"requested_by"`
}

func (h *TemplateHandler) Render(c *gin.Context) {
	var body renderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Context == nil {
		body.Context = map[string]any{}
	}

	result, err := h.renderer.RenderTemplate(c.Request.Context(), c.Param("name"), body.Context, body.Language, body.TemplateType, body.RequestedBy)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *TemplateHandler) RenderAsync(c *gin.Context) {
	var body renderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Context == nil {
		body.Context = map[string]any{}
	}

	taskID, err := h.enqueueRender(c, c.Param("name"), body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue render request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

type bulkRenderBody struct {
	Requests []struct {
		TemplateName string         `json:"template_name" binding:"required"`
		Language     string         `json:"language"`
		TemplateType string         `json:"template_type"`
		Context      map[string]any `json:"context"`
		RequestedBy  string         `json:"requested_by"`
	} `json:"requests" binding:"required"`
}

func (h *TemplateHandler) RenderBulk(c *gin.Context) {
	var body bulkRenderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskIDs := make([]uuid.UUID, 0, len(body.Requests))
	for _, req := range body.Requests {
		renderCtx := req.Context
		if renderCtx == nil {
			renderCtx = map[string]any{}
		}
		requestedBy := req.RequestedBy
		if requestedBy == "" {
			requestedBy = "bulk_render"
		}
		taskID, err := h.enqueueRender(c, req.TemplateName, renderBody{
			Language:     req.Language,
			TemplateType: req.TemplateType,
			Context:      renderCtx,
			RequestedBy:  requestedBy,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue render request", "queued": taskIDs})
			return
		}
		taskIDs = append(taskIDs, taskID)
	}

	c.JSON(http.StatusAccepted, gin.H{"task_ids": taskIDs})
}

func (h *TemplateHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.renderer.GetRenderLogs(c.Request.Context(), c.Param("name"), c.Query("language"), c.Query("type"), limit)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *TemplateHandler) enqueueRender(c *gin.Context, name string, body renderBody) (uuid.UUID, error) {
	req := types.RenderRequest{
		TaskID:       uuid.New(),
		TemplateName: name,
		Language:     body.Language,
		TemplateType: body.TemplateType,
		Context:      body.Context,
		RequestedBy:  body.RequestedBy,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return uuid.Nil, err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(c.Request.Context(), carrier)
	headers := make([]kafkago.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	if err := h.producer.Publish(c.Request.Context(), h.topic, req.TaskID[:], payload, headers...); err != nil {
		h.log.Error("failed to publish render request",
			zap.String("template_name", name),
			zap.Error(err),
		)
		return uuid.Nil, err
	}
	return req.TaskID, nil
}
