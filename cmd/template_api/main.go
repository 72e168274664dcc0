package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devank/tmplhub/cmd/template_api/app/routes"
	"github.com/devank/tmplhub/logger"
	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/middlewares"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/config"
	"github.com/devank/tmplhub/pkg/database"
	"github.com/devank/tmplhub/pkg/kafka"
	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/services"
	"github.com/devank/tmplhub/pkg/utils"
	"github.com/devank/tmplhub/tracing"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg, err := config.Load(utils.GetEnvDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	db, err := database.InitDB(cfg.DatabaseDSN)
	if err != nil {
		panic("DB not init  " + err.Error())
	}
	database.MigrateDB(db, &models.Template{}, &models.TemplateContent{}, &models.RenderLog{})

	logr, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	logr.Info("Logger initialized")

	rdb := database.InitRedis(cfg.RedisAddr)
	templateCache := cache.NewRedisCache(rdb)

	metrics.InitAPIMetrics()
	shutdownTracer := tracing.InitTracer("template_api", cfg.OTLPEndpoint, logr)

	producer := kafka.NewProducer([]string{cfg.KafkaBroker})
	logr.Info("Kafka producer initialized", zap.String("broker", cfg.KafkaBroker))

	maintenance := services.NewMaintenanceService(db, templateCache, cfg.WarmCacheTTL(), cfg.CleanupBatchSize, logr)

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		status := maintenance.HealthCheck(ctx.Request.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	routes.Templates(v1.Group("/templates"), db, templateCache, producer, cfg, logr)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go runBackgroundJobs(jobCtx, maintenance, cfg, logr)

	go handleShutdown(producer, shutdownTracer, cancelJobs, logr)
	if err := router.Run(cfg.Addr); err != nil {
		logr.Fatal("Failed to start server", zap.Error(err))
	}
}

func runBackgroundJobs(ctx context.Context, m *services.MaintenanceService, cfg *config.Config, log *zap.Logger) {
	warm := time.NewTicker(cfg.WarmInterval())
	cleanup := time.NewTicker(cfg.CleanupInterval())
	health := time.NewTicker(cfg.HealthInterval())
	defer warm.Stop()
	defer cleanup.Stop()
	defer health.Stop()

	if n, err := m.WarmCache(ctx, cfg.WarmCacheSize); err != nil {
		log.Warn("Initial cache warmup failed", zap.Error(err))
	} else {
		log.Info("Cache warmed", zap.Int("templates", n))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("Background jobs stopped")
			return
		case <-warm.C:
			if n, err := m.WarmCache(ctx, cfg.WarmCacheSize); err != nil {
				log.Warn("Cache warmup failed", zap.Error(err))
			} else {
				log.Info("Cache warmed", zap.Int("templates", n))
			}
		case <-cleanup.C:
			if deleted, err := m.CleanupOldLogs(ctx, cfg.LogRetentionDays); err != nil {
				log.Warn("Render log cleanup failed", zap.Error(err))
			} else {
				log.Info("Render logs cleaned up", zap.Int64("deleted", deleted))
			}
		case <-health.C:
			status := m.HealthCheck(ctx)
			if status.Status != "healthy" {
				log.Warn("Health check degraded",
					zap.String("status", status.Status),
					zap.String("database", status.Database),
					zap.String("cache", status.Cache),
				)
			}
		}
	}
}

func handleShutdown(producer *kafka.Producer, shutdownTracer func(), cancelJobs func(), log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	cancelJobs()

	if err := producer.Close(); err != nil {
		log.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		log.Info("Kafka producer closed cleanly")
	}

	shutdownTracer()

	os.Exit(0)
}
