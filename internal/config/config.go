package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	// Upload limits
	MaxFileSize int64

	// Azure Document Intelligence
	AzureEndpoint   string
	AzureKey        string
	AzureModel      string
	AzureAPIVersion string
	OCRPollInterval time.Duration
	OCRTimeout      time.Duration

	// Groq (text-only, OpenAI-compatible)
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	// OpenAI (text + vision)
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIVisionModel string
	OpenAIBaseURL     string

	LLMTemperature    float64
	LLMTimeout        time.Duration
	LLMMaxPromptChars int

	DatasetsFile   string
	MetricsEnabled bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MaxFileSize:       getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		AzureEndpoint:     getEnv("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT", ""),
		AzureKey:          getEnv("AZURE_DOCUMENT_INTELLIGENCE_KEY", ""),
		AzureModel:        getEnv("AZURE_DOCUMENT_INTELLIGENCE_MODEL", "prebuilt-layout"),
		AzureAPIVersion:   getEnv("AZURE_DOCUMENT_INTELLIGENCE_API_VERSION", "2024-11-30"),
		OCRPollInterval:   getEnvAsDuration("OCR_POLL_INTERVAL", time.Second),
		OCRTimeout:        getEnvAsDuration("OCR_TIMEOUT", 90*time.Second),
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqModel:         getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIVisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMTemperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxPromptChars: getEnvAsInt("LLM_MAX_PROMPT_CHARS", 8000),
		DatasetsFile:      getEnv("DATASETS_FILE", ""),
		MetricsEnabled:    getEnv("METRICS_ENABLED", "true") == "true",
	}

	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if (cfg.AzureEndpoint == "") != (cfg.AzureKey == "") {
		return nil, fmt.Errorf("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT and AZURE_DOCUMENT_INTELLIGENCE_KEY must be set together")
	}

	return cfg, nil
}

func (c *Config) OCRConfigured() bool { return c.AzureEndpoint != "" && c.AzureKey != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
