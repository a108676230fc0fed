package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GRSAI_API_KEY", "sk-test")
	t.Setenv("TASK_STORE", "")
	t.Setenv("GRSAI_REGION", "")
	t.Setenv("REFRESH_CONCURRENCY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TaskStore != StoreFile {
		t.Fatalf("TaskStore = %q, want %q", cfg.TaskStore, StoreFile)
	}
	if cfg.GRSAIDomesticURL != DefaultDomesticURL || cfg.GRSAIOverseasURL != DefaultOverseasURL {
		t.Fatalf("unexpected base urls: %q %q", cfg.GRSAIDomesticURL, cfg.GRSAIOverseasURL)
	}
	if cfg.PollTimeout != 15*time.Second {
		t.Fatalf("PollTimeout = %s, want 15s", cfg.PollTimeout)
	}
	if cfg.SubmitTimeout != 30*time.Second {
		t.Fatalf("SubmitTimeout = %s, want 30s", cfg.SubmitTimeout)
	}
	if cfg.RefreshConcurrency != 4 {
		t.Fatalf("RefreshConcurrency = %d, want 4", cfg.RefreshConcurrency)
	}
	if cfg.TranslationThreshold != 0.5 {
		t.Fatalf("TranslationThreshold = %v, want 0.5", cfg.TranslationThreshold)
	}
}

func TestLoadConfigFallsBackToLegacyAPIKey(t *testing.T) {
	t.Setenv("GRSAI_API_KEY", "")
	t.Setenv("API_KEY", "legacy")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GRSAIAPIKey != "legacy" {
		t.Fatalf("GRSAIAPIKey = %q, want legacy", cfg.GRSAIAPIKey)
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("GRSAI_API_KEY", "")
	t.Setenv("API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when api key is missing")
	}
}

func TestLoadConfigPostgresNeedsDatabaseURL(t *testing.T) {
	t.Setenv("GRSAI_API_KEY", "sk-test")
	t.Setenv("TASK_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TaskStore != StorePostgres {
		t.Fatalf("TaskStore = %q, want postgres", cfg.TaskStore)
	}
}

func TestLoadConfigParsesLists(t *testing.T) {
	t.Setenv("GRSAI_API_KEY", "sk-test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")
	t.Setenv("GRSAI_OVERSEAS_URL", "https://proxy.example.com/")
	t.Setenv("AUTO_DOWNLOAD", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if cfg.GRSAIOverseasURL != "https://proxy.example.com" {
		t.Fatalf("GRSAIOverseasURL = %q, want trailing slash trimmed", cfg.GRSAIOverseasURL)
	}
	if !cfg.AutoDownload {
		t.Fatal("AutoDownload = false, want true")
	}
}
