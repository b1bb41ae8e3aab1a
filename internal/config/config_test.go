package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.TasksFile != "data/tasks.json" {
		t.Errorf("TasksFile = %q", cfg.TasksFile)
	}
	if cfg.EndpointsFile != "data/llm-endpoints.json" {
		t.Errorf("EndpointsFile = %q", cfg.EndpointsFile)
	}
	if cfg.Production {
		t.Error("Production should default to false")
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if len(cfg.FrontendOrigins) != 2 {
		t.Errorf("FrontendOrigins = %v", cfg.FrontendOrigins)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("rate limit = %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_BASE_URL", "http://models.internal:8000/v1")
	t.Setenv("LLM_MODEL", "llama-3")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !cfg.Production {
		t.Error("APP_ENV=production should enable production mode")
	}
	if cfg.LLMBaseURL != "http://models.internal:8000/v1" {
		t.Errorf("LLMBaseURL = %q", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "llama-3" || cfg.LLMAPIKey != "sk-test" {
		t.Errorf("LLM settings: %q %q", cfg.LLMModel, cfg.LLMAPIKey)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROMPTSTUDIO_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want prefixed value 7070", cfg.Port)
	}
}

func TestLoadBadTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("want error for unparseable HTTP_TIMEOUT")
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins(" http://a.example/, ,http://b.example ")
	want := []string{"http://a.example", "http://b.example"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("origin[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
