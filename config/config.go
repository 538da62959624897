package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Models holds the backend deployment name used for each client route.
type Models struct {
	Chat      string `yaml:"chat"`
	Text      string `yaml:"text"`
	Embedding string `yaml:"embedding"`
}

var DefaultModels = Models{
	Chat:      "chat-bison-001",
	Text:      "text-bison-001",
	Embedding: "embedding-gecko-001",
}

type Config struct {
	// Server
	Port string // default: 8080

	// Backend
	BackendBaseURL string        // default: https://generativelanguage.googleapis.com
	BackendTimeout time.Duration // default: 60s
	Models         Models

	// Rate limiting, enabled when RedisAddr is set
	RedisAddr    string
	RateLimitRPM int64 // requests per minute per API key, default: 600

	// Request log, enabled when PostgresDSN is set
	PostgresDSN string

	// Observability
	OTELExporterType     string // "stdout", "otlp" or "none"
	OTELExporterEndpoint string // default: "localhost:4317"
}

type modelsFile struct {
	Models Models `yaml:"models"`
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		BackendBaseURL: getEnv("PALM_BASE_URL", "https://generativelanguage.googleapis.com"),
		Models: Models{
			Chat:      getEnv("PALM_CHAT_MODEL", DefaultModels.Chat),
			Text:      getEnv("PALM_TEXT_MODEL", DefaultModels.Text),
			Embedding: getEnv("PALM_EMBED_MODEL", DefaultModels.Embedding),
		},
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	timeout, err := time.ParseDuration(getEnv("BACKEND_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
	}
	cfg.BackendTimeout = timeout

	rpm, err := strconv.ParseInt(getEnv("RATE_LIMIT_RPM", "600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}
	cfg.RateLimitRPM = rpm

	if path := os.Getenv("MODELS_FILE"); path != "" {
		if err := cfg.Models.overlay(path); err != nil {
			return nil, err
		}
	}

	// Validation
	if cfg.Models.Chat == "" || cfg.Models.Text == "" || cfg.Models.Embedding == "" {
		return nil, fmt.Errorf("model names must not be empty")
	}
	if cfg.RedisAddr != "" && cfg.RateLimitRPM <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", cfg.RateLimitRPM)
	}
	switch cfg.OTELExporterType {
	case "stdout", "otlp", "none":
	default:
		return nil, fmt.Errorf("invalid OTEL_EXPORTER_TYPE %q", cfg.OTELExporterType)
	}

	return cfg, nil
}

// overlay replaces the model names set in the YAML file at path.
func (m *Models) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read models file %q: %w", path, err)
	}

	var f modelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse models file %q: %w", path, err)
	}

	if f.Models.Chat != "" {
		m.Chat = f.Models.Chat
	}
	if f.Models.Text != "" {
		m.Text = f.Models.Text
	}
	if f.Models.Embedding != "" {
		m.Embedding = f.Models.Embedding
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
