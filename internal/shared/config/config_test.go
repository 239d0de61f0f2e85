package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LLM_PROVIDER", "LLM_MODEL", "LLM_ANALYZE_TIMEOUT", "OBJECT_STORE", "MAX_UPLOAD_BYTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" || cfg.Env != "dev" {
		t.Fatalf("unexpected port/env: %q %q", cfg.Port, cfg.Env)
	}
	if cfg.LLMProvider != "openai" || cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("unexpected provider defaults: %q %q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.ValidateTimeout != 30*time.Second || cfg.AnalyzeTimeout != 45*time.Second || cfg.StructureTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: %v %v %v", cfg.ValidateTimeout, cfg.AnalyzeTimeout, cfg.StructureTimeout)
	}
	if cfg.ObjectStoreType != "local" || cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected storage defaults: %q %d", cfg.ObjectStoreType, cfg.MaxUploadBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_ANALYZE_TIMEOUT", "90")
	t.Setenv("LLM_STRUCTURE_TIMEOUT", "2m")
	t.Setenv("LLM_CHAT_TIMEOUT", "nonsense")
	t.Setenv("CORS_ALLOW_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("OPENAI_NO_TEMPERATURE_MODELS", "o1-mini, gpt-5")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.LLMProvider != "gemini" || cfg.LLMModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected provider: %q %q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.AnalyzeTimeout != 90*time.Second || cfg.StructureTimeout != 2*time.Minute {
		t.Fatalf("unexpected timeouts: %v %v", cfg.AnalyzeTimeout, cfg.StructureTimeout)
	}
	if cfg.ChatTimeout != 60*time.Second {
		t.Fatalf("invalid value should fall back, got %v", cfg.ChatTimeout)
	}
	if len(cfg.OpenAINoTemperature) != 2 || cfg.OpenAINoTemperature[1] != "gpt-5" {
		t.Fatalf("unexpected no-temperature models: %#v", cfg.OpenAINoTemperature)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowOrigin)
	}
}
