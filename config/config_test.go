package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "PALM_BASE_URL", "PALM_CHAT_MODEL", "PALM_TEXT_MODEL", "PALM_EMBED_MODEL",
		"BACKEND_TIMEOUT", "MODELS_FILE", "REDIS_ADDR", "RATE_LIMIT_RPM", "POSTGRES_DSN",
		"OTEL_EXPORTER_TYPE", "OTEL_EXPORTER_ENDPOINT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep a stray .env in the working directory out of the picture.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.BackendBaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("Unexpected base URL %s", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.BackendTimeout)
	}
	if cfg.Models != DefaultModels {
		t.Errorf("Expected default models, got %+v", cfg.Models)
	}
	if cfg.RateLimitRPM != 600 {
		t.Errorf("Expected 600 rpm, got %d", cfg.RateLimitRPM)
	}
	if cfg.RedisAddr != "" || cfg.PostgresDSN != "" {
		t.Errorf("Expected optional stores to be disabled, got redis=%q postgres=%q", cfg.RedisAddr, cfg.PostgresDSN)
	}
	if cfg.OTELExporterType != "stdout" {
		t.Errorf("Expected stdout exporter, got %s", cfg.OTELExporterType)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PALM_CHAT_MODEL", "chat-custom")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_RPM", "30")
	t.Setenv("OTEL_EXPORTER_TYPE", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Models.Chat != "chat-custom" || cfg.Models.Text != DefaultModels.Text {
		t.Errorf("Unexpected models %+v", cfg.Models)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.BackendTimeout)
	}
	if cfg.RateLimitRPM != 30 {
		t.Errorf("Expected 30 rpm, got %d", cfg.RateLimitRPM)
	}
	if cfg.OTELExporterType != "none" {
		t.Errorf("Expected none exporter, got %s", cfg.OTELExporterType)
	}
}

func TestLoad_ModelsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models:\n  text: text-unicorn\n  embedding: embed-2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODELS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Models{Chat: DefaultModels.Chat, Text: "text-unicorn", Embedding: "embed-2"}
	if cfg.Models != want {
		t.Errorf("Expected %+v, got %+v", want, cfg.Models)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{"BACKEND_TIMEOUT": "soon"}},
		{"bad rpm", map[string]string{"RATE_LIMIT_RPM": "many"}},
		{"zero rpm with redis", map[string]string{"REDIS_ADDR": "x:1", "RATE_LIMIT_RPM": "0"}},
		{"empty model", map[string]string{"PALM_TEXT_MODEL": ""}},
		{"unknown exporter", map[string]string{"OTEL_EXPORTER_TYPE": "jaeger"}},
		{"missing models file", map[string]string{"MODELS_FILE": "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
