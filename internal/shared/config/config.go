package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cvcoach-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string

	LLMProvider         string
	LLMModel            string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	// OpenAINoTemperature lists models that reject an explicit temperature.
	OpenAINoTemperature []string
	GeminiAPIKey        string
	ValidateTimeout     time.Duration
	AnalyzeTimeout      time.Duration
	StructureTimeout    time.Duration
	ChatTimeout         time.Duration

	MaxUploadBytes int64
	JWTSecret      string
	Traces         string

	RateLimitRate     float64
	RateLimitBurst    int
	LLMRateLimitRate  float64
	LLMRateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience; missing files are fine.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := normalizeProvider(getEnv("LLM_PROVIDER", "openai"))

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 env,
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		LLMProvider:         provider,
		LLMModel:            getEnv("LLM_MODEL", defaultModel(provider)),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAINoTemperature: splitAndTrim(os.Getenv("OPENAI_NO_TEMPERATURE_MODELS")),
		GeminiAPIKey:        firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY")),
		ValidateTimeout:     getDuration("LLM_VALIDATE_TIMEOUT", 30*time.Second),
		AnalyzeTimeout:      getDuration("LLM_ANALYZE_TIMEOUT", 45*time.Second),
		StructureTimeout:    getDuration("LLM_STRUCTURE_TIMEOUT", 60*time.Second),
		ChatTimeout:         getDuration("LLM_CHAT_TIMEOUT", 60*time.Second),
		MaxUploadBytes:      getInt64("MAX_UPLOAD_BYTES", 10<<20),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		Traces:              normalizeTraces(getEnv("OTEL_TRACES", "none")),
		RateLimitRate:       getFloat("RATE_LIMIT_RATE", 5),
		RateLimitBurst:      int(getInt64("RATE_LIMIT_BURST", 20)),
		LLMRateLimitRate:    getFloat("RATE_LIMIT_LLM_RATE", 0.5),
		LLMRateLimitBurst:   int(getInt64("RATE_LIMIT_LLM_BURST", 5)),
	}

	if env == "production" && cfg.JWTSecret == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "JWT_SECRET", "effect": "bearer tokens rejected"})
	}
	if provider == "openai" && cfg.OpenAIAPIKey == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "OPENAI_API_KEY"})
	}
	if provider == "gemini" && cfg.GeminiAPIKey == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "GEMINI_API_KEY"})
	}
	return cfg
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
	return def
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	default:
		return "openai"
	}
}

func normalizeTraces(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stdout":
		return "stdout"
	case "otlp":
		return "otlp"
	default:
		return "none"
	}
}

func defaultModel(provider string) string {
	if provider == "gemini" {
		return "gemini-2.5-flash"
	}
	return "gpt-4o-mini"
}
