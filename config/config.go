package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultPrompt = "Summarize the content of this video clearly and concisely."

type Config struct {
	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DBPath  string
	TempDir string

	LogDir    string
	LogLevel  string
	LogFormat string

	RateLimit         int
	RateLimitInterval time.Duration
	AllowedOrigins    []string

	Gemini   GeminiConfig
	Analysis AnalysisConfig
	Archive  ArchiveConfig
}

type GeminiConfig struct {
	// APIKey is the only credential. An empty key disables analysis
	// rather than failing startup.
	APIKey         string
	BaseURL        string
	Model          string
	DeleteUploaded bool
}

type AnalysisConfig struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	Timeout       time.Duration
	DefaultPrompt string
	MaxUploadSize int64
}

type ArchiveConfig struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from the environment, after merging any .env
// file found in the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
	return LoadConfig()
}

func LoadConfig() *Config {
	apiKey := GetEnv("GOOGLE_API_KEY", "")
	if apiKey == "" {
		apiKey = GetEnv("GEMINI_API_KEY", "")
	}

	return &Config{
		ServerPort:   GetEnv("SERVER_PORT", "8080"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 15*time.Minute),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),

		DBPath:  GetEnv("DB_PATH", "./data/vidsight.db"),
		TempDir: GetEnv("TEMP_DIR", os.TempDir()),

		LogDir:    GetEnv("LOG_DIR", "./logs"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),

		RateLimit:         getEnvAsInt("RATE_LIMIT", 5),
		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 1*time.Second),
		AllowedOrigins:    getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		Gemini: GeminiConfig{
			APIKey:         apiKey,
			BaseURL:        GetEnv("GEMINI_BASE_URL", ""),
			Model:          GetEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			DeleteUploaded: getEnvAsBool("GEMINI_DELETE_UPLOADED", false),
		},

		Analysis: AnalysisConfig{
			PollInterval:  getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
			PollTimeout:   getEnvAsDuration("POLL_TIMEOUT", 60*time.Second),
			Timeout:       getEnvAsDuration("ANALYSIS_TIMEOUT", 10*time.Minute),
			DefaultPrompt: GetEnv("DEFAULT_PROMPT", defaultPrompt),
			MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 100<<20),
		},

		Archive: ArchiveConfig{
			Bucket:    GetEnv("ARCHIVE_BUCKET", ""),
			Endpoint:  GetEnv("ARCHIVE_ENDPOINT", ""),
			Region:    GetEnv("ARCHIVE_REGION", "us-east-1"),
			AccessKey: GetEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey: GetEnv("ARCHIVE_SECRET_KEY", ""),
		},
	}
}

// APIKeyConfigured reports whether the analysis trigger is enabled.
func (c *Config) APIKeyConfigured() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != ""
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return errors.New("server port is required")
	}
	if cfg.DBPath == "" {
		return errors.New("database path is required")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if cfg.RateLimit <= 0 || cfg.RateLimitInterval <= 0 {
		return errors.New("rate limit and interval must be greater than 0")
	}
	if cfg.Analysis.PollInterval <= 0 {
		return errors.New("poll interval must be greater than 0")
	}
	if cfg.Analysis.PollTimeout < cfg.Analysis.PollInterval {
		return errors.Errorf("poll timeout %s must not be shorter than poll interval %s",
			cfg.Analysis.PollTimeout, cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.Timeout <= 0 {
		return errors.New("analysis timeout must be greater than 0")
	}
	if cfg.Analysis.MaxUploadSize <= 0 {
		return errors.New("max upload size must be greater than 0")
	}
	if cfg.Gemini.Model == "" {
		return errors.New("gemini model is required")
	}
	return nil
}
