package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheTTL() != time.Hour {
		t.Errorf("Expected default cache TTL of 1h, got %v", cfg.CacheTTL())
	}
	if cfg.LogRetentionDays != 30 {
		t.Errorf("Expected default retention of 30 days, got %d", cfg.LogRetentionDays)
	}
	if cfg.WarmCacheSize != 50 {
		t.Errorf("Expected default warm cache size of 50, got %d", cfg.WarmCacheSize)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/does/not/exist.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RenderTopic != "template.render.requested" {
		t.Errorf("Expected default render topic, got %q", cfg.RenderTopic)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("cache_ttl_seconds: 120\nwarm_cache_size: 10\naddr: \":8080\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheTTL() != 2*time.Minute {
		t.Errorf("Expected cache TTL of 2m, got %v", cfg.CacheTTL())
	}
	if cfg.WarmCacheSize != 10 {
		t.Errorf("Expected warm cache size of 10, got %d", cfg.WarmCacheSize)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %q", cfg.Addr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	os.Setenv("CACHE_TTL", "60")
	defer os.Unsetenv("CACHE_TTL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheTTL() != time.Minute {
		t.Errorf("Expected cache TTL of 1m from env, got %v", cfg.CacheTTL())
	}
}
