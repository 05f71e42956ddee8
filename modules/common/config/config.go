package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting.
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase (optional - history module is disabled without it)
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Gemini API
	GeminiAPIKey string // optional seed credential; users can set their own via the API
	ImageModel   string
	EditModel    string
	VideoModel   string

	// Video polling
	VideoPollInterval time.Duration
	VideoPollCeiling  time.Duration // negative disables the safety limit

	// Server
	Port string

	// Upload limit (bytes)
	MaxUploadSize int64
}

var globalConfig *Config

// LoadConfig reads the environment (and .env when present) into the global config.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := true
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// default 10MB
	maxUpload := int64(10 << 20)
	if sizeStr := os.Getenv("MAX_UPLOAD_SIZE"); sizeStr != "" {
		if parsed, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && parsed > 0 {
			maxUpload = parsed
		}
	}

	globalConfig = &Config{
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ImageModel:   getEnv("IMAGE_MODEL", "imagen-4.0-generate-001"),
		EditModel:    getEnv("EDIT_MODEL", "gemini-2.5-flash-image"),
		VideoModel:   getEnv("VIDEO_MODEL", "veo-3.1-fast-generate-preview"),

		VideoPollInterval: getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoPollCeiling:  getEnvDuration("VIDEO_POLL_CEILING", 30*time.Minute),

		Port: getEnv("PORT", "8080"),

		MaxUploadSize: maxUpload,
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	if globalConfig.SupabaseURL != "" {
		log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	} else {
		log.Printf("   Supabase: not configured (history disabled)")
	}
	log.Printf("   Models: image=%s edit=%s video=%s", globalConfig.ImageModel, globalConfig.EditModel, globalConfig.VideoModel)

	return globalConfig, nil
}

// GetConfig returns the loaded config, fatally if LoadConfig was never called.
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// getEnvDuration parses a Go duration string ("10s", "30m"). "off" or "0"
// for VIDEO_POLL_CEILING disables the limit.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "off" || value == "0" {
		return -1
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	log.Printf("⚠️  Invalid duration for %s: %q, using default %s", key, value, defaultValue)
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetRedisAddr builds the host:port connection string.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
