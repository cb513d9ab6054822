// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reasoning providers understood by the query engine.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	Env                 string
	StoreURL            string
	HideSystemDatabases bool
	ChartDir            string
	PreviewRows         int
	SessionTTL          time.Duration
	AllowedOrigins      []string
	Reasoning           ReasoningConfig
	Log                 LogConfig
}

// ReasoningConfig selects and tunes the external reasoning service.
type ReasoningConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	provider := strings.ToLower(getEnv("REASONING_PROVIDER", ProviderGroq))

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "production"),
		StoreURL:            getEnvFirst("STORE_CONNECTION_URL", "MONGODB_URL"),
		HideSystemDatabases: getEnvBool("STORE_HIDE_SYSTEM_DATABASES", false),
		ChartDir:            getEnv("CHART_DIR", "./data/charts"),
		PreviewRows:         getEnvInt("PREVIEW_ROWS", 5),
		SessionTTL:          getEnvDuration("SESSION_TTL", 60*time.Minute),
		AllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
		Reasoning: ReasoningConfig{
			Provider:    provider,
			APIKey:      getEnvFirst("REASONING_SERVICE_KEY", "GROQ_API_KEY"),
			BaseURL:     getEnv("REASONING_BASE_URL", defaultBaseURL(provider)),
			Model:       getEnv("REASONING_MODEL", "llama3-70b-8192"),
			Temperature: getEnvFloat("REASONING_TEMPERATURE", 0.6),
			Timeout:     getEnvDuration("REASONING_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.StoreURL == "" {
		return fmt.Errorf("STORE_CONNECTION_URL is required")
	}
	if c.Reasoning.APIKey == "" {
		return fmt.Errorf("REASONING_SERVICE_KEY is required")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ChartDir == "" {
		return fmt.Errorf("CHART_DIR cannot be empty")
	}
	if c.PreviewRows <= 0 {
		return fmt.Errorf("PREVIEW_ROWS must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	switch c.Reasoning.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported REASONING_PROVIDER %q", c.Reasoning.Provider)
	}
	if c.Reasoning.Model == "" {
		return fmt.Errorf("REASONING_MODEL cannot be empty")
	}
	if c.Reasoning.Temperature < 0 || c.Reasoning.Temperature > 2 {
		return fmt.Errorf("REASONING_TEMPERATURE must be within [0, 2]")
	}
	if c.Reasoning.Timeout <= 0 {
		return fmt.Errorf("REASONING_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvFirst returns the first non-empty value among keys.
func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
