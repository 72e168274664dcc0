package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/devank/tmplhub/cmd/render_worker/handler"
	"github.com/devank/tmplhub/logger"
	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/pkg/cache"
	"github.com/devank/tmplhub/pkg/config"
	"github.com/devank/tmplhub/pkg/database"
	"github.com/devank/tmplhub/pkg/services"
	"github.com/devank/tmplhub/pkg/utils"
	"github.com/devank/tmplhub/tracing"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	cfg, err := config.Load(utils.GetEnvDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logr.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.InitDB(cfg.DatabaseDSN)
	if err != nil {
		panic("failed to initialize Database: " + err.Error())
	}

	rdb := database.InitRedis(cfg.RedisAddr)
	templateCache := cache.NewRedisCache(rdb)

	logr.Info("Starting render worker service")

	metrics.InitWorkerMetrics()
	shutdownTracer := tracing.InitTracer("render_worker", cfg.OTLPEndpoint, logr)
	defer shutdownTracer()
	tracer := otel.Tracer("render_worker")

	svc := services.NewTemplateService(db, templateCache, cfg.CacheTTL(), logr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handler.HandleRenderQueue(ctx, cfg, svc, logr, tracer)

	if err := http.ListenAndServe(":3001", mux); err != nil {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}
