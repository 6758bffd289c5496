package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port: want=8080 got=%s", cfg.Server.Port)
	}
	if cfg.Upload.MaxSizeBytes != 5<<20 {
		t.Fatalf("max upload: want=%d got=%d", 5<<20, cfg.Upload.MaxSizeBytes)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Fatalf("gemini timeout: want=60s got=%s", cfg.Gemini.Timeout)
	}
	if cfg.Storage.Backend != StorageBackendLocal {
		t.Fatalf("storage backend: want=local got=%s", cfg.Storage.Backend)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Fatalf("port: want=9999 got=%s", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Fatalf("model: want=gemini-1.5-pro got=%s", cfg.Gemini.Model)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("ttl: want=2h got=%s", cfg.Auth.TokenTTL)
	}
	if cfg.Upload.MaxSizeBytes != 1048576 {
		t.Fatalf("max upload: want=1048576 got=%d", cfg.Upload.MaxSizeBytes)
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GEMINI_API_KEY", "key")

	if _, err := Load(); err == nil {
		t.Fatal("want error for missing JWT_SECRET")
	}
}

func TestValidateStorageBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BACKEND", "gcs")

	if _, err := Load(); err == nil {
		t.Fatal("want error for gcs backend without bucket")
	}

	t.Setenv("GCS_BUCKET", "my-bucket")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.GCSBucket != "my-bucket" {
		t.Fatalf("bucket: want=my-bucket got=%s", cfg.Storage.GCSBucket)
	}

	t.Setenv("STORAGE_BACKEND", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("want error for unknown backend")
	}
}
