package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	TokensFromStore = "store"
	TokensRedis     = "redis"

	BlobFS = "fs"
	BlobS3 = "s3"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	StoreBackend string
	TokenBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	// zero means tokens never expire
	TokenTTL time.Duration

	BlobBackend string
	MediaRoot   string
	MediaURL    string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	MaxUploadMB int

	MaxBodyBytes   int64
	LoginRateLimit int

	AdminEmail    string
	AdminPassword string
	AdminName     string

	OTLPEndpoint   string
	ServiceName    string
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		StoreBackend: getEnv("STORE_BACKEND", StorePostgres),
		TokenBackend: getEnv("TOKEN_BACKEND", TokensFromStore),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 0),

		BlobBackend: getEnv("BLOB_BACKEND", BlobFS),
		MediaRoot:   getEnv("MEDIA_ROOT", "./media"),
		MediaURL:    getEnv("MEDIA_URL", "/media"),
		S3Bucket:    getEnv("S3_BUCKET", "recipes"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 10),

		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "recipehub-api"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

// Validate catches combinations that would only fail later at wiring time.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.TokenBackend {
	case TokensFromStore, TokensRedis:
	default:
		return fmt.Errorf("unknown TOKEN_BACKEND %q", c.TokenBackend)
	}

	switch c.BlobBackend {
	case BlobFS:
	case BlobS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	if c.Env == "prod" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in prod")
	}

	return nil
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "recipehub")
	pass := getEnv("DB_PASSWORD", "recipehub")
	name := getEnv("DB_NAME", "recipehub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
