package handler

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devank/tmplhub/pkg/config"
	"github.com/devank/tmplhub/pkg/kafka"
	"github.com/devank/tmplhub/pkg/services"
	"github.com/devank/tmplhub/pkg/types"
)

// HandleRenderQueue consumes queued render requests and runs them through the
// same render path the synchronous API uses, so every async render lands in
// the audit log too.
func HandleRenderQueue(ctx context.Context, cfg *config.Config, svc *services.TemplateService, logger *zap.Logger, tracer trace.Tracer) {
	topic := cfg.RenderTopic
	c := kafka.NewConsumerFromEnv(topic, cfg.RenderGroupID)
	defer c.Close()

	logger.Info("Starting Kafka consumer", zap.String("topic", topic))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down render consumer", zap.String("topic", topic))
			return

		default:
			m, err := c.ReadFromKafka(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Error reading Kafka message", zap.String("topic", topic), zap.Error(err))
				continue
			}

			msgCtx := ctx
			if len(m.Headers) > 0 {
				carrier := make(map[string]string)
				for _, h := range m.Headers {
					carrier[h.Key] = string(h.Value)
				}
				msgCtx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(carrier))
			}

			renderCtx, span := tracer.Start(msgCtx, "handle-render")
			func() {
				defer span.End()

				var req types.RenderRequest
				if err := json.Unmarshal(m.Value, &req); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "failed to unmarshal render request")
					logger.Error("Failed to unmarshal render request",
						zap.ByteString("raw", m.Value),
						zap.Error(err),
					)
					return
				}

				result, err := svc.RenderTemplate(renderCtx, req.TemplateName, req.Context, req.Language, req.TemplateType, req.RequestedBy)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "render failed")
					logger.Error("Async render failed",
						zap.String("task_id", req.TaskID.String()),
						zap.String("template_name", req.TemplateName),
						zap.Error(err),
					)
					return
				}

				logger.Info("Async render completed",
					zap.String("task_id", req.TaskID.String()),
					zap.String("template_name", result.TemplateName),
					zap.Int("version", result.Version),
					zap.Int("body_length", len(result.Body)),
				)
			}()
		}
	}
}
