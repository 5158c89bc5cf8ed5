package config

import (
	"os"

	"tagassist/internal/logger"
)

type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey string
	DefaultModel string

	// Document backend license
	LicenseName string
	LicenseKey  string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment. The OpenAI key may also be
// supplied later via the --openai-key flag, so nothing is required here.
func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		DefaultModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		LicenseName:   getEnv("DOCTREE_LICENSE_NAME", ""),
		LicenseKey:    getEnv("DOCTREE_LICENSE_KEY", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
