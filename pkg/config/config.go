package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devank/tmplhub/pkg/utils"
)

type Config struct {
	Addr          string `yaml:"addr"`
	DatabaseDSN   string `yaml:"database_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	KafkaBroker   string `yaml:"kafka_broker"`
	RenderTopic   string `yaml:"render_topic"`
	RenderGroupID string `yaml:"render_group_id"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`
	WarmCacheTTLSeconds int `yaml:"warm_cache_ttl_seconds"`
	WarmCacheSize       int `yaml:"warm_cache_size"`

	LogRetentionDays int `yaml:"log_retention_days"`
	CleanupBatchSize int `yaml:"cleanup_batch_size"`

	WarmIntervalMinutes    int `yaml:"warm_interval_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	HealthIntervalMinutes  int `yaml:"health_interval_minutes"`

	RenderRatePerSecond int `yaml:"render_rate_per_second"`
	RenderRateBurst     int `yaml:"render_rate_burst"`
}

func Default() *Config {
	return &Config{
		Addr:                   ":3000",
		RenderTopic:            "template.render.requested",
		RenderGroupID:          "render_worker",
		OTLPEndpoint:           "localhost:4317",
		CacheTTLSeconds:        3600,
		WarmCacheTTLSeconds:    1800,
		WarmCacheSize:          50,
		LogRetentionDays:       30,
		CleanupBatchSize:       1000,
		WarmIntervalMinutes:    30,
		CleanupIntervalMinutes: 60 * 24,
		HealthIntervalMinutes:  5,
		RenderRatePerSecond:    50,
		RenderRateBurst:        100,
	}
}

// Load builds the config from defaults, then the yaml file at path (if it
// exists), then environment variables. Env wins.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.Addr = utils.GetEnvDefault("TEMPLATE_API_ADDR", cfg.Addr)
	cfg.DatabaseDSN = utils.GetEnvDefault("TEMPLATE_DB", cfg.DatabaseDSN)
	cfg.RedisAddr = utils.GetEnvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.KafkaBroker = utils.GetEnvDefault("KAFKA_BROKER", cfg.KafkaBroker)
	cfg.RenderTopic = utils.GetEnvDefault("RENDER_TOPIC", cfg.RenderTopic)
	cfg.RenderGroupID = utils.GetEnvDefault("RENDER_GROUP_ID", cfg.RenderGroupID)
	cfg.OTLPEndpoint = utils.GetEnvDefault("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.CacheTTLSeconds = utils.GetEnvInt("CACHE_TTL", cfg.CacheTTLSeconds)
	cfg.WarmCacheSize = utils.GetEnvInt("WARM_CACHE_SIZE", cfg.WarmCacheSize)
	cfg.LogRetentionDays = utils.GetEnvInt("LOG_RETENTION_DAYS", cfg.LogRetentionDays)

	return cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) WarmCacheTTL() time.Duration {
	return time.Duration(c.WarmCacheTTLSeconds) * time.Second
}

func (c *Config) WarmInterval() time.Duration {
	return time.Duration(c.WarmIntervalMinutes) * time.Minute
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMinutes) * time.Minute
}
