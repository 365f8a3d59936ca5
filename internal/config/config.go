package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"credit-approval/internal/core/credit"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string
	Port           string
	Database       DatabaseConfig
	APIKeys        []string
	DataDir        string
	LockTimeout    time.Duration
	RateMode       credit.RateMode
	Redis          RedisConfig
	Kafka          KafkaConfig
	Jobs           JobsConfig
	AllowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// RedisConfig configures the score cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ScoreTTL time.Duration
}

// KafkaConfig configures loan event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JobsConfig configures background work
type JobsConfig struct {
	Workers        int
	QueueSize      int
	CloseSchedule  string
	IngestSchedule string
	IngestOnEmpty  bool
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment
func FromEnv() (*Config, error) {
	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig(appMode)
	if err != nil {
		return nil, err
	}

	lockTimeout, err := getDuration("LOCK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if lockTimeout <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TIMEOUT: must be positive")
	}

	rateMode, err := credit.ParseRateMode(getEnv("RATE_CORRECTION_MODE", ""))
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	jobs, err := loadJobsConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:        appMode,
		Port:           getEnv("PORT", "8000"),
		Database:       database,
		APIKeys:        splitList(getEnv("API_KEYS", "")),
		DataDir:        getEnv("DATA_DIR", "./data"),
		LockTimeout:    lockTimeout,
		RateMode:       rateMode,
		Redis:          redis,
		Kafka:          KafkaConfig{Brokers: splitList(getEnv("KAFKA_BROKERS", "")), Topic: getEnv("KAFKA_TOPIC", "loan-events")},
		Jobs:           jobs,
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s, DB: %s]", appMode, database.Driver)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	defaultPort := "3306"
	switch driver {
	case DriverMySQL, DriverSQLite:
	case DriverPostgres:
		defaultPort = "5432"
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER: '%s' (must be mysql, postgres or sqlite)", driver)
	}

	return DatabaseConfig{
		Driver:     driver,
		Host:       getEnv(prefix+"DB_HOST", "localhost"),
		Port:       getEnv(prefix+"DB_PORT", defaultPort),
		User:       getEnv(prefix+"DB_USER", "root"),
		Password:   getEnv(prefix+"DB_PASS", ""),
		DBName:     getEnv(prefix+"DB_NAME", "credit_approval"),
		SQLitePath: getEnv("SQLITE_PATH", "credit_approval.db"),
	}, nil
}

func loadRedisConfig() (RedisConfig, error) {
	db, err := getInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getDuration("SCORE_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return RedisConfig{}, err
	}
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		ScoreTTL: ttl,
	}, nil
}

func loadJobsConfig() (JobsConfig, error) {
	workers, err := getInt("INGEST_WORKERS", 1)
	if err != nil {
		return JobsConfig{}, err
	}
	queueSize, err := getInt("INGEST_QUEUE_SIZE", 8)
	if err != nil {
		return JobsConfig{}, err
	}
	onEmpty, err := strconv.ParseBool(getEnv("INGEST_ON_EMPTY", "true"))
	if err != nil {
		return JobsConfig{}, fmt.Errorf("invalid INGEST_ON_EMPTY: %w", err)
	}
	return JobsConfig{
		Workers:        workers,
		QueueSize:      queueSize,
		CloseSchedule:  getEnv("CLOSE_LOANS_SCHEDULE", ""),
		IngestSchedule: getEnv("INGEST_SCHEDULE", ""),
		IngestOnEmpty:  onEmpty,
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:8000"
	}
	return c.AllowedOrigins
}
