package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabaseURL     string
	DatabasePath    string
	MigrationsPath  string
	SessionSecret   string
	SessionDuration time.Duration

	// Uploads (challenge attachments, generated artifacts)
	UploadDir     string
	UploadMaxSize int64

	// Public token configuration
	TokenLength int

	// Notification email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	// Remote artifact host (legacy challenge staging, best-effort)
	RemoteAPIBase string
	RemoteRepo    string
	RemoteToken   string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:     getEnv("DB_URL", ""),
		DatabasePath:    getEnv("DB_PATH", "./classquest.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionDuration: 24 * time.Hour,
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		UploadMaxSize:   getEnvInt64("UPLOAD_MAX_SIZE", 5*1024*1024), // 5MB
		TokenLength:     6,
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "ClassQuest"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
		RemoteAPIBase:   getEnv("REMOTE_API_BASE", ""),
		RemoteRepo:      getEnv("REMOTE_REPO", ""),
		RemoteToken:     getEnv("REMOTE_TOKEN", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 reads an integer environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid value for %s, using default: %v", key, err)
		return defaultValue
	}
	return parsed
}
