package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MediaTypePDF and MediaTypeDOCX are the only upload types the service
	// accepts.
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// StorageBackendLocal keeps blobs on the local filesystem,
	// StorageBackendGCS in a Google Cloud Storage bucket.
	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

type Configuration struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	Backend   string // "local" or "gcs"
	LocalDir  string
	GCSBucket string
	OpTimeout time.Duration
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	BcryptCost        int
	PasswordMinLength int
	PasswordMaxLength int
}

type UploadConfig struct {
	MaxSizeBytes int64
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Default returns the configuration the service starts from before the
// environment is applied.
func Default() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Password:        "password",
			Name:            "doc_summarizer",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   StorageBackendLocal,
			LocalDir:  "data/blobs",
			OpTimeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-1.5-flash",
			Timeout:     60 * time.Second,
			Temperature: 0.2,
		},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			BcryptCost:        bcrypt.DefaultCost,
			PasswordMinLength: 8,
			PasswordMaxLength: 64,
		},
		Upload: UploadConfig{
			MaxSizeBytes: 5 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads an optional .env file, then overlays the process environment
// on the defaults. Environment always wins over .env contents.
func Load() (*Configuration, error) {
	_ = godotenv.Load()

	cfg := Default()

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.Username = getEnv("DB_USER", cfg.Database.Username)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)

	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.LocalDir = getEnv("STORAGE_LOCAL_DIR", cfg.Storage.LocalDir)
	cfg.Storage.GCSBucket = getEnv("GCS_BUCKET", cfg.Storage.GCSBucket)
	cfg.Storage.OpTimeout = getEnvDuration("STORAGE_OP_TIMEOUT", cfg.Storage.OpTimeout)

	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.Timeout = getEnvDuration("GEMINI_TIMEOUT", cfg.Gemini.Timeout)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.BcryptCost = getEnvInt("BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Upload.MaxSizeBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.Upload.MaxSizeBytes)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Configuration) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must be set")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("config: GEMINI_API_KEY must be set")
	}
	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("config: STORAGE_LOCAL_DIR must be set for local storage")
		}
	case StorageBackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config: GCS_BUCKET must be set for gcs storage")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// AllowedMediaTypes lists the accepted upload types. PDF and DOCX only.
func (c *Configuration) AllowedMediaTypes() []string {
	return []string{MediaTypePDF, MediaTypeDOCX}
}

// LogConfig logs the effective configuration with secrets redacted.
func LogConfig(cfg *Configuration, logger *zap.Logger) {
	logger.Info("Application configuration",
		zap.String("port", cfg.Server.Port),
		zap.Duration("read_timeout", cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Name),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("gcs_bucket", cfg.Storage.GCSBucket),
		zap.String("gemini_model", cfg.Gemini.Model),
		zap.Duration("gemini_timeout", cfg.Gemini.Timeout),
		zap.Duration("token_ttl", cfg.Auth.TokenTTL),
		zap.Int64("max_upload_bytes", cfg.Upload.MaxSizeBytes),
		zap.String("gemini_api_key", "[REDACTED]"),
		zap.String("jwt_secret", "[REDACTED]"),
		zap.String("database_password", "[REDACTED]"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
