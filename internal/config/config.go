package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey    string
	HTTPPort        string
	DatabaseURL     string
	StoreBackend    string // "sqlite" or "memory"
	UploadDir       string
	PollInterval    time.Duration
	WorkerCount     int
	JobTimeout      time.Duration
	SafetyMode      string
	SafetyRulesFile string
	LogLevel        string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		HTTPPort:        getEnv("HTTP_PORT", "3000"),
		DatabaseURL:     getEnv("DATABASE_URL", "studyforge.db"),
		StoreBackend:    getEnv("STORE_BACKEND", "sqlite"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		PollInterval:    time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 10)) * time.Second,
		WorkerCount:     getEnvAsInt("WORKER_COUNT", runtime.NumCPU()),
		JobTimeout:      time.Duration(getEnvAsInt("JOB_TIMEOUT_SECONDS", 120)) * time.Second,
		SafetyMode:      getEnv("SAFETY_MODE", "redact"),
		SafetyRulesFile: getEnv("SAFETY_RULES_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
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
