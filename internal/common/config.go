package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Prep     PrepConfig
	Model    ModelConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	UploadDir       string
	MaxUploadMB     int
	ShutdownTimeout time.Duration
}

// PrepConfig holds preprocessing and OCR configuration
type PrepConfig struct {
	Pdftoppm         string
	Magick           string
	Tesseract        string
	HeicConverter    string
	TessdataDir      string
	TesseractLang    string
	DPI              int
	MaxPages         int
	EnhanceImages    bool
	PageConcurrency  int
	ArtifactCacheDir string
}

// ModelConfig holds vision-model client configuration
type ModelConfig struct {
	BaseURL         string
	Model           string
	APIKey          string
	Temperature     float32
	Timeout         time.Duration
	MaxRetries      int
	MinInterval     time.Duration
	MaxOutputTokens int
	MaxImageMB      int
	LenientOptional bool
}

// PipelineConfig holds worker pool and threshold configuration
type PipelineConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	MinConfidence  float32
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:extractions.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadMB:     getEnvAsInt("MAX_UPLOAD_MB", 64),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Prep: PrepConfig{
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Magick:           getEnv("MAGICK_BIN", "magick"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			DPI:              getEnvAsInt("PREP_DPI", 300),
			MaxPages:         getEnvAsInt("PREP_MAX_PAGES", 20),
			EnhanceImages:    getEnvAsBool("PREP_ENHANCE", true),
			PageConcurrency:  getEnvAsInt("PREP_PAGE_CONCURRENCY", 4),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Model: ModelConfig{
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
			APIKey:          getEnv("GOOGLE_API_KEY", ""),
			Temperature:     getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:         getEnvAsDuration("GEMINI_TIMEOUT", 90*time.Second),
			MaxRetries:      getEnvAsInt("GEMINI_MAX_RETRIES", 3),
			MinInterval:     getEnvAsDuration("GEMINI_MIN_INTERVAL", 2*time.Second),
			MaxOutputTokens: getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 8192),
			MaxImageMB:      getEnvAsInt("GEMINI_MAX_IMAGE_MB", 15),
			LenientOptional: getEnvAsBool("GEMINI_LENIENT_OPTIONAL", true),
		},
		Pipeline: PipelineConfig{
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:      getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
			MinConfidence:  getEnvAsFloat32("PIPELINE_MIN_CONFIDENCE", 0.60),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Model.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
