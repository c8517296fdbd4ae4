package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Run modes, set via the -m flag.
const (
	RunModeAPI = "api" // REST API only
	RunModeImg = "img" // image-processing worker only
	RunModeAll = "all"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT. Write routes are open when JwtSecret is empty.
	JwtSecret string

	// Server
	ApiPort           string
	ServiceApiPort    string
	CorsAllowedOrigin string
	RequestTimeout    time.Duration

	// Logging
	LogLevel  string
	LogPretty bool

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	AwsS3Endpoint      string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int
	ImageUploadURLTTL  time.Duration

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// S3Enabled reports whether image uploads can be served.
func (c *Config) S3Enabled() bool {
	return c.AwsS3Bucket != "" && c.AwsRegion != ""
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	switch runMode {
	case RunModeAPI, RunModeImg, RunModeAll:
	default:
		return nil, fmt.Errorf("invalid run mode %q", runMode)
	}

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		n, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return n, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		n, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(n) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "realty")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret = getEnv("JWT_SECRET", "")
	cfg.ApiPort = getEnv("API_PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CorsAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AwsS3Endpoint = getEnv("AWS_S3_ENDPOINT", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")

	cfg.LogPretty, err = strconv.ParseBool(getEnv("LOG_PRETTY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT_SECONDS", "15"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.ImageUploadURLTTL, err = getSeconds("IMAGE_UPLOAD_URL_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "60"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "30"); err != nil {
		return nil, err
	}

	if cfg.RunMode != RunModeAPI && !cfg.S3Enabled() {
		return nil, fmt.Errorf("run mode %q requires AWS_REGION and AWS_S3_BUCKET", cfg.RunMode)
	}

	return cfg, nil
}
