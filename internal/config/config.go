package config

import (
	"os"
	"strconv"
)

// PoolConfig holds connection pool settings applied to every tenant database.
type PoolConfig struct {
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// DALConfig holds dispatcher-level settings.
type DALConfig struct {
	// OperationTimeoutSec bounds a single document-database operation.
	OperationTimeoutSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EdgarConfig holds settings for the SEC EDGAR feed proxy.
// The SEC requires a descriptive User-Agent on all automated requests.
type EdgarConfig struct {
	UserAgent  string
	TimeoutSec int
}

// LLMConfig holds settings for the Gemini completion endpoint.
type LLMConfig struct {
	APIKey string
	Model  string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
// Per-tenant credential material is intentionally NOT loaded here; the tenant
// manager reads it lazily so that a misconfigured tenant fails on first use,
// not at startup.
type AppConfig struct {
	AppHost string
	Port    string
	Pool    PoolConfig
	DAL     DALConfig
	MinIO   MinIOConfig
	Edgar   EdgarConfig
	LLM     LLMConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Pool: PoolConfig{
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		DAL: DALConfig{
			OperationTimeoutSec: getEnvInt("DAL_OPERATION_TIMEOUT_SEC", 10),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Edgar: EdgarConfig{
			UserAgent:  getEnv("EDGAR_USER_AGENT", "Outpost KT CIK Mapper (contact@outpostkt.com)"),
			TimeoutSec: getEnvInt("EDGAR_TIMEOUT_SEC", 15),
		},
		LLM: LLMConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
