package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var TemplateRendersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "template_renders_total",
		Help: "Total number of template render attempts",
	},
	[]string{"template_type", "status"},
)

var TemplateRenderDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "template_render_duration_seconds",
		Help:    "Time taken to resolve and render a template",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"template_type"},
)

var TemplateCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "template_cache_hits_total",
		Help: "Total number of template cache hits",
	},
	[]string{"template_type"},
)

var TemplateCacheMissesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "template_cache_misses_total",
		Help: "Total number of template cache misses",
	},
	[]string{"template_type"},
)

var TemplateCacheErrorsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "template_cache_errors_total",
		Help: "Total number of cache backend failures (degraded to store lookups)",
	},
)

var TemplateVersionsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "template_versions_created_total",
		Help: "Total number of template versions created",
	},
	[]string{"template_type"},
)

var TemplateRollbacksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "template_rollbacks_total",
		Help: "Total number of template version rollbacks",
	},
	[]string{"template_type"},
)

var RenderLogsDeletedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "render_logs_deleted_total",
		Help: "Total number of render log rows removed by the retention sweep",
	},
)

var KafkaPublishSuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_success_total",
		Help: "Total number of successful Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaPublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaSubscriberFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_subscriber_failure_total",
		Help: "Total number of failed Kafka reads",
	},
	[]string{"topic"},
)

var KafkaConsumerLag = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "kafka_consumer_lag",
		Help: "Lag of Kafka consumer group per topic",
	},
	[]string{"group", "topic"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		HttpErrorsTotal,
		HttpRateLimitRejectionsTotal,
		TemplateRendersTotal,
		TemplateRenderDuration,
		TemplateCacheHitsTotal,
		TemplateCacheMissesTotal,
		TemplateCacheErrorsTotal,
		TemplateVersionsCreatedTotal,
		TemplateRollbacksTotal,
		RenderLogsDeletedTotal,
		KafkaPublishSuccessTotal,
		KafkaPublishFailureTotal,
	)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(
		TemplateRendersTotal,
		TemplateRenderDuration,
		TemplateCacheHitsTotal,
		TemplateCacheMissesTotal,
		TemplateCacheErrorsTotal,
		KafkaSubscriberFailureTotal,
		KafkaConsumerLag,
	)
}
