package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Risk     RiskConfig
	Sentry   SentryConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig holds the query cache configuration
type CacheConfig struct {
	TTLSeconds int
	KeyPrefix  string
}

// RiskConfig holds the flagging thresholds and scoring weights.
// Every value is an overridable product decision, not fixed law.
type RiskConfig struct {
	HighVolumeThreshold     int     // dispute count above which high-volume fires
	ExtremePricingThreshold float64 // average award/QPA ratio
	BatchAbuseThreshold     float64 // batch rate fraction
	VolumeSpikeThreshold    float64 // quarter-over-quarter growth fraction
	GeoExpansionBaseline    int     // distinct-state baseline crossed between periods
	PayerTargetingThreshold float64 // top-payer concentration share

	HighVolumeWeight     float64
	ExtremePricingWeight float64
	BatchAbuseWeight     float64
	VolumeSpikeWeight    float64
	GeoExpansionWeight   float64
	PayerTargetingWeight float64
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "idrintel"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTLSeconds: getEnvAsInt("CACHE_TTL_SECONDS", 3600),
			KeyPrefix:  getEnv("CACHE_KEY_PREFIX", "idr:view"),
		},
		Risk: RiskConfig{
			HighVolumeThreshold:     getEnvAsInt("RISK_HIGH_VOLUME_THRESHOLD", 1000),
			ExtremePricingThreshold: getEnvAsFloat("RISK_EXTREME_PRICING_THRESHOLD", 5.0),
			BatchAbuseThreshold:     getEnvAsFloat("RISK_BATCH_ABUSE_THRESHOLD", 0.90),
			VolumeSpikeThreshold:    getEnvAsFloat("RISK_VOLUME_SPIKE_THRESHOLD", 2.0),
			GeoExpansionBaseline:    getEnvAsInt("RISK_GEO_EXPANSION_BASELINE", 10),
			PayerTargetingThreshold: getEnvAsFloat("RISK_PAYER_TARGETING_THRESHOLD", 0.80),

			HighVolumeWeight:     getEnvAsFloat("RISK_HIGH_VOLUME_WEIGHT", 20),
			ExtremePricingWeight: getEnvAsFloat("RISK_EXTREME_PRICING_WEIGHT", 25),
			BatchAbuseWeight:     getEnvAsFloat("RISK_BATCH_ABUSE_WEIGHT", 20),
			VolumeSpikeWeight:    getEnvAsFloat("RISK_VOLUME_SPIKE_WEIGHT", 15),
			GeoExpansionWeight:   getEnvAsFloat("RISK_GEO_EXPANSION_WEIGHT", 10),
			PayerTargetingWeight: getEnvAsFloat("RISK_PAYER_TARGETING_WEIGHT", 10),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnvAsBool("SENTRY_ENABLED", false),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection URL used by golang-migrate
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
