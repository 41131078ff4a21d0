package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        string
	Environment string // "development" or "production"
	FrontendURL string

	// Database
	DBType string // "sqlite", "mysql" or "postgres"
	DBPath string // SQLite database path

	// MySQL
	MySQLHost            string
	MySQLPort            int
	MySQLUser            string
	MySQLPassword        string
	MySQLDatabase        string
	MySQLTLSEnabled      bool
	MySQLTLSSkipVerify   bool
	MySQLTLSCACert       string // Path to CA certificate
	MySQLMaxOpenConns    int
	MySQLMaxIdleConns    int
	MySQLConnMaxLifetime time.Duration
	MySQLConnMaxIdleTime time.Duration

	// Postgres (Supabase database or any other Postgres)
	PostgresDSN          string
	PostgresMaxOpenConns int

	// JWT
	JWTSecret         string
	JWTExpirationDays int

	// Supabase auth; optional, enables verification of Supabase session tokens
	SupabaseURL string
	SupabaseKey string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Challenges
	LeaderboardCacheTTL time.Duration
	LifecycleInterval   time.Duration
	ChallengeListLimit  int
	CoverCacheDir       string

	// Lets cover downloads reach loopback and private networks
	CoverAllowPrivateHosts bool

	// Metrics endpoint basic auth; endpoint is open when unset
	MetricsUser string
	MetricsPass string
}

// Load reads configuration from environment variables
func Load() *Config {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Database
		DBType: getEnv("DB_TYPE", "sqlite"),
		DBPath: getEnv("DB_PATH", "data/game-vault.db"),

		// MySQL
		MySQLHost:            getEnv("MYSQL_HOST", "localhost"),
		MySQLPort:            getEnvAsInt("MYSQL_PORT", 3306),
		MySQLUser:            getEnv("MYSQL_USER", ""),
		MySQLPassword:        getEnv("MYSQL_PASSWORD", ""),
		MySQLDatabase:        getEnv("MYSQL_DATABASE", "game_vault"),
		MySQLTLSEnabled:      getEnvAsBool("MYSQL_TLS_ENABLED", false),
		MySQLTLSSkipVerify:   getEnvAsBool("MYSQL_TLS_SKIP_VERIFY", false),
		MySQLTLSCACert:       getEnv("MYSQL_TLS_CA_CERT", ""),
		MySQLMaxOpenConns:    getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 25),
		MySQLMaxIdleConns:    getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 5),
		MySQLConnMaxLifetime: getEnvAsDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		MySQLConnMaxIdleTime: getEnvAsDuration("MYSQL_CONN_MAX_IDLE_TIME", 1*time.Minute),

		// Postgres
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		PostgresMaxOpenConns: getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 20),

		// Auth
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpirationDays: getEnvAsInt("JWT_EXPIRATION_DAYS", 7),
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseKey:       getEnv("SUPABASE_KEY", ""),

		// Rate limiting
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),

		// Challenges
		LeaderboardCacheTTL: getEnvAsDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		LifecycleInterval:   getEnvAsDuration("LIFECYCLE_INTERVAL", time.Minute),
		ChallengeListLimit:  getEnvAsInt("CHALLENGE_LIST_LIMIT", 50),
		CoverCacheDir:       getEnv("COVER_CACHE_DIR", "data/covers"),

		CoverAllowPrivateHosts: getEnvAsBool("COVER_ALLOW_PRIVATE_HOSTS", false),

		// Metrics
		MetricsUser: getEnv("METRICS_USER", ""),
		MetricsPass: getEnv("METRICS_PASS", ""),
	}

	// Validate required configuration
	cfg.validate()

	return cfg
}

// validate checks that all required configuration is present
func (c *Config) validate() {
	if c.JWTSecret == "" {
		log.Fatal("FATAL: JWT_SECRET must be set")
	}
	if c.DBType == "postgres" && c.PostgresDSN == "" {
		log.Fatal("FATAL: POSTGRES_DSN must be set when DB_TYPE=postgres")
	}
	if c.SupabaseURL != "" && c.SupabaseKey == "" {
		log.Println("WARNING: SUPABASE_URL is set without SUPABASE_KEY - Supabase token verification will fail")
	}
}

// IsDevelopment reports whether development-only endpoints are enabled
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat reads an environment variable as float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool reads an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration reads an environment variable as duration or returns a default value
// Supports formats like "5m", "1h", "30s"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
