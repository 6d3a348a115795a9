package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const devJWTSecret = "dev-secret"

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	DatabaseURL     string   `env:"DATABASE_URL"`

	// FrontendURL is the base of generated share links (<FrontendURL>/share/<token>).
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	// APIBaseURL is where this process is reachable; used by the local object store.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	// OpenDocumentReads lets any authenticated caller read a document by id.
	OpenDocumentReads bool `env:"ACCESS_OPEN_READS" envDefault:"false"`

	JWT       JWT       `envPrefix:"JWT_"`
	Storage   Storage
	MinIO     MinIO     `envPrefix:"MINIO_"`
	Presign   Presign   `envPrefix:"PRESIGN_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Google    Google    `envPrefix:"GOOGLE_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`

	UIRedirectURL string `env:"UI_REDIRECT_URL"`
}

// JWT configures bearer token signing.
type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Storage selects and configures the object store.
type Storage struct {
	Type           string `env:"OBJECT_STORE" envDefault:"local"`
	LocalDir       string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	LocalSecret    string `env:"LOCAL_STORE_SECRET"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	AWSRegion      string `env:"AWS_REGION"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Prefix       string `env:"S3_PREFIX"`
}

// MinIO configures the MinIO-compatible presigner.
type MinIO struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"pdfshare"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Presign holds lifetimes of minted object URLs.
type Presign struct {
	UploadTTL     time.Duration `env:"UPLOAD_TTL" envDefault:"5m"`
	ViewTTL       time.Duration `env:"VIEW_TTL" envDefault:"5m"`
	PublicViewTTL time.Duration `env:"PUBLIC_VIEW_TTL" envDefault:"1h"`
}

// Redis configures the optional share-token cache. An empty Addr disables it.
type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"SHARE_TTL" envDefault:"1h"`
}

// Google configures optional Google sign-in.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// RateLimit holds token bucket rules per route group.
type RateLimit struct {
	DefaultRate  float64 `env:"DEFAULT_RATE" envDefault:"20"`
	DefaultBurst int     `env:"DEFAULT_BURST" envDefault:"40"`
	AuthRate     float64 `env:"AUTH_RATE" envDefault:"1"`
	AuthBurst    int     `env:"AUTH_BURST" envDefault:"10"`
	PublicRate   float64 `env:"PUBLIC_RATE" envDefault:"5"`
	PublicBurst  int     `env:"PUBLIC_BURST" envDefault:"20"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return Parse()
}

// Parse builds a Config from the current process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Storage.Type = normalizeStoreType(cfg.Storage.Type)
	cfg.CORSAllowOrigin = splitAndTrim(strings.Join(cfg.CORSAllowOrigin, ","))
	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.Storage.LocalSecret == "" {
		cfg.Storage.LocalSecret = cfg.JWT.Secret
	}
	return cfg, nil
}

// IsDevLike reports whether in-memory fallbacks are allowed.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func (c Config) validate() error {
	if c.Env != "production" {
		return nil
	}
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.Storage.Type == "local" {
		errs = append(errs, errors.New("OBJECT_STORE=local is not allowed in production"))
	}
	return errors.Join(errs...)
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
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
