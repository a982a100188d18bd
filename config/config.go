package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Export    ExportConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

// ServerConfig holds server-related configurations
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds JWT-related configurations
type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // minutes
}

type RedisConfig struct {
	URL      string
	Username string
	Password string
}

// StorageConfig holds object storage (S3-compatible) configurations
type StorageConfig struct {
	Region    string
	Endpoint  string // optional, for S3-compatible backends like MinIO
	AccessKey string
	SecretKey string
	Bucket    string
}

// ExportConfig holds document export pipeline configurations
type ExportConfig struct {
	Timeout      time.Duration // hard wall-clock deadline per job
	PollInterval time.Duration // worker claim cadence
	ZipSizeLimit int64         // bytes
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	APIKeys     []string // comma-separated in API_KEYS
}

// Load reads configuration from environment variables
func Load() *Config {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	viper.SetDefault("SERVER_IDLE_TIMEOUT", 60)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "fiscalist")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_NAME", "fiscalist")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("JWT_ACCESS_TTL", 1440) // 1 day in minutes
	viper.SetDefault("STORAGE_REGION", "eu-central-1")
	viper.SetDefault("STORAGE_BUCKET", "fiscalist-documents")
	viper.SetDefault("EXPORT_TIMEOUT", "5m")
	viper.SetDefault("EXPORT_POLL_INTERVAL", "30s")
	viper.SetDefault("EXPORT_ZIP_SIZE_LIMIT", int64(1<<30)) // 1 GiB
	viper.SetDefault("RATE_LIMIT_RPM", 120)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			ReadTimeout:  viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetInt("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			SecretKey:      viper.GetString("JWT_SECRET"),
			AccessTokenTTL: viper.GetInt("JWT_ACCESS_TTL"),
		},
		Redis: RedisConfig{
			URL:      viper.GetString("REDIS_URL"),
			Username: viper.GetString("REDIS_USERNAME"),
			Password: viper.GetString("REDIS_PASSWORD"),
		},
		Storage: StorageConfig{
			Region:    viper.GetString("STORAGE_REGION"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
		},
		Export: ExportConfig{
			Timeout:      viper.GetDuration("EXPORT_TIMEOUT"),
			PollInterval: viper.GetDuration("EXPORT_POLL_INTERVAL"),
			ZipSizeLimit: viper.GetInt64("EXPORT_ZIP_SIZE_LIMIT"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: viper.GetInt("RATE_LIMIT_RPM"),
		},
		App: AppConfig{
			Environment: viper.GetString("APP_ENV"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
			APIKeys:     splitAPIKeys(viper.GetString("API_KEYS")),
		},
	}
}

func splitAPIKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
