package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment profiles. Production carries stricter review thresholds than
// development.
const (
	ProfileDevelopment = "development"
	ProfileProduction  = "production"
)

// Orchestration modes for the behavior search.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)

// Config holds application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	VideoSearch VideoSearchConfig
	Proctoring  ProctoringConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds the access-token secret used to resolve the requester's
// identity on owner-scoped endpoints.
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

// VideoSearchConfig holds the external video semantic search service config
type VideoSearchConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// ProctoringConfig holds the analysis engine tuning knobs
type ProctoringConfig struct {
	Profile               string
	CatalogPath           string // optional; built-in profile catalog when empty
	Mode                  string // parallel or sequential
	MaxConcurrentSearches int
	SearchDeadline        time.Duration
	MaxRetries            int
	RetryInitialInterval  time.Duration
	RetryMaxInterval      time.Duration
	ReviewThreshold       float64
	TopConcerns           int
	ComparisonWindow      int
	TrendEpsilon          float64
	ReportCacheTTL        time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	profile := getEnv("PROCTORING_PROFILE", getEnv("ENVIRONMENT", ProfileDevelopment))

	// Stricter defaults in the production profile.
	defaultReviewThreshold := 0.55
	defaultMode := ModeSequential
	if profile == ProfileProduction {
		defaultReviewThreshold = 0.65
		defaultMode = ModeParallel
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", ProfileDevelopment),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "proctor_engine"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "1h"),
		},
		VideoSearch: VideoSearchConfig{
			BaseURL:        getEnv("VIDEO_SEARCH_BASE_URL", "http://localhost:9200"),
			APIKey:         getEnv("VIDEO_SEARCH_API_KEY", ""),
			RequestTimeout: getEnvAsDuration("VIDEO_SEARCH_TIMEOUT", "30s"),
		},
		Proctoring: ProctoringConfig{
			Profile:               profile,
			CatalogPath:           getEnv("BEHAVIOR_CATALOG_PATH", ""),
			Mode:                  getEnv("SEARCH_MODE", defaultMode),
			MaxConcurrentSearches: getEnvAsInt("MAX_CONCURRENT_SEARCHES", 5),
			SearchDeadline:        getEnvAsDuration("SEARCH_DEADLINE", "90s"),
			MaxRetries:            getEnvAsInt("ANALYSIS_MAX_RETRIES", 3),
			RetryInitialInterval:  getEnvAsDuration("ANALYSIS_RETRY_INITIAL_INTERVAL", "2s"),
			RetryMaxInterval:      getEnvAsDuration("ANALYSIS_RETRY_MAX_INTERVAL", "30s"),
			ReviewThreshold:       getEnvAsFloat("REVIEW_THRESHOLD", defaultReviewThreshold),
			TopConcerns:           getEnvAsInt("REPORT_TOP_CONCERNS", 5),
			ComparisonWindow:      getEnvAsInt("COMPARISON_WINDOW", 5),
			TrendEpsilon:          getEnvAsFloat("TREND_EPSILON", 0.05),
			ReportCacheTTL:        getEnvAsDuration("REPORT_CACHE_TTL", "1h"),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.VideoSearch.BaseURL == "" {
		return fmt.Errorf("VIDEO_SEARCH_BASE_URL is required")
	}
	if c.Proctoring.Mode != ModeParallel && c.Proctoring.Mode != ModeSequential {
		return fmt.Errorf("SEARCH_MODE must be %q or %q, got %q", ModeParallel, ModeSequential, c.Proctoring.Mode)
	}
	if c.Proctoring.MaxConcurrentSearches < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SEARCHES must be at least 1")
	}
	if c.Proctoring.ReviewThreshold < 0 || c.Proctoring.ReviewThreshold > 1 {
		return fmt.Errorf("REVIEW_THRESHOLD must be in [0,1]")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
