package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/devank/tmplhub/cmd/template_api/app/internal/handler"
	"github.com/devank/tmplhub/middlewares"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/config"
	"github.com/devank/tmplhub/pkg/kafka"
)

func Templates(r *gin.RouterGroup, db *gorm.DB, c cache.TemplateCache, p *kafka.Producer, cfg *config.Config, log *zap.Logger) {
	templateHandler := handler.NewTemplateHandler(db, c, p, cfg, log)
	renderLimiter := middlewares.NewRateLimiter(rate.Limit(cfg.RenderRatePerSecond), cfg.RenderRateBurst)

	r.POST("/", templateHandler.CreateOrSupersede)
	r.GET("/:name", templateHandler.GetActive)
	r.PUT("/:name/content", templateHandler.UpdateContent)
	r.GET("/:name/versions", templateHandler.ListVersions)
	r.DELETE("/:name/versions/:version", templateHandler.DeleteVersion)
	r.POST("/:name/rollback", templateHandler.Rollback)
	r.GET("/:name/variables", templateHandler.GetVariables)
	r.POST("/:name/validate", templateHandler.ValidateContext)
	r.GET("/:name/logs", templateHandler.GetLogs)
	r.POST("/:name/render", renderLimiter.Middleware(), templateHandler.Render)
	r.POST("/:name/render/async", renderLimiter.Middleware(), templateHandler.RenderAsync)
	r.POST("/render/bulk", renderLimiter.Middleware(), templateHandler.RenderBulk)
}
