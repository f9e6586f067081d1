package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Billing    BillingConfig
	Revenue    RevenueConfig
	Statements StatementsConfig
	Bulk       BulkConfig
	Admin      AdminConfig
	Legacy     LegacyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	Namespace string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BillingConfig tunes monthly aggregation caching.
type BillingConfig struct {
	CacheTTL time.Duration
}

// RevenueConfig tunes revenue dashboard caching.
type RevenueConfig struct {
	CacheTTL time.Duration
}

// StatementsConfig configures statement rendering and archive jobs.
type StatementsConfig struct {
	OrganizationName  string
	PaymentNote       string
	FontPath          string
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	JobTimeout        time.Duration
	RenderConcurrency int
}

// BulkConfig bounds fan-out for bulk mutations.
type BulkConfig struct {
	Concurrency int
}

// AdminConfig seeds the first administrator account.
type AdminConfig struct {
	Username string
	Password string
}

// LegacyConfig points at the retired MongoDB store.
type LegacyConfig struct {
	MongoURI      string
	MongoDatabase string
	Timeout       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: v.GetString("REDIS_NAMESPACE"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Billing = BillingConfig{
		CacheTTL: parseDuration(v.GetString("BILLING_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Revenue = RevenueConfig{
		CacheTTL: parseDuration(v.GetString("REVENUE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Statements = StatementsConfig{
		OrganizationName:  v.GetString("STATEMENT_ORG_NAME"),
		PaymentNote:       v.GetString("STATEMENT_PAYMENT_NOTE"),
		FontPath:          v.GetString("STATEMENT_FONT_PATH"),
		StorageDir:        v.GetString("STATEMENT_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("STATEMENT_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("STATEMENT_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("STATEMENT_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("STATEMENT_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("STATEMENT_WORKER_RETRIES"),
		JobTimeout:        parseDuration(v.GetString("STATEMENT_JOB_TIMEOUT"), 10*time.Minute),
		RenderConcurrency: v.GetInt("STATEMENT_RENDER_CONCURRENCY"),
	}

	cfg.Bulk = BulkConfig{
		Concurrency: v.GetInt("BULK_CONCURRENCY"),
	}

	cfg.Admin = AdminConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.Legacy = LegacyConfig{
		MongoURI:      v.GetString("MONGODB_URI"),
		MongoDatabase: v.GetString("MONGODB_DATABASE"),
		Timeout:       parseDuration(v.GetString("MONGODB_TIMEOUT"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_center")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "tutor")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BILLING_CACHE_TTL", "5m")
	v.SetDefault("REVENUE_CACHE_TTL", "10m")

	v.SetDefault("STATEMENT_ORG_NAME", "Tuition Center")
	v.SetDefault("STATEMENT_PAYMENT_NOTE", "Please settle the amount above by bank transfer or cash at the front desk before the 10th of next month.")
	v.SetDefault("STATEMENT_FONT_PATH", "")
	v.SetDefault("STATEMENT_STORAGE_DIR", "./statements")
	v.SetDefault("STATEMENT_SIGNED_URL_SECRET", "dev_statements_secret")
	v.SetDefault("STATEMENT_SIGNED_URL_TTL", "24h")
	v.SetDefault("STATEMENT_CLEANUP_INTERVAL", "1h")
	v.SetDefault("STATEMENT_WORKER_CONCURRENCY", 1)
	v.SetDefault("STATEMENT_WORKER_RETRIES", 2)
	v.SetDefault("STATEMENT_JOB_TIMEOUT", "10m")
	v.SetDefault("STATEMENT_RENDER_CONCURRENCY", 4)

	v.SetDefault("BULK_CONCURRENCY", 8)

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "tutor_center")
	v.SetDefault("MONGODB_TIMEOUT", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// viper reports a missing explicit config file as a *fs.PathError rather than
// ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
