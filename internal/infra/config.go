package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	LibraryPath       string
	QueueDBPath       string
	PublicURL         string
	CORSOrigins       []string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ReplicateAPIToken string
	ReplicateBaseURL  string
	AirtablePAT       string
	AirtableBaseID    string
	AirtableTable     string
	CaptionModel      string
	AssessModel       string
	PipelineEnabled   bool
	PipelineInterval  time.Duration
	QueuePollInterval time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	ProviderTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	libraryPath := getEnv("LIBRARY_PATH", "./library")
	if abs, err := filepath.Abs(libraryPath); err == nil {
		libraryPath = abs
	}

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8000"),
		LibraryPath:       libraryPath,
		QueueDBPath:       getEnv("QUEUE_DB_PATH", filepath.Join(libraryPath, "queue.db")),
		PublicURL:         strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8000"), "/"),
		CORSOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		AirtablePAT:       os.Getenv("AIRTABLE_PAT"),
		AirtableBaseID:    os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:     getEnv("AIRTABLE_TABLE", "Content Calendar"),
		CaptionModel:      getEnv("CAPTION_MODEL", "google/gemini-2.5-flash"),
		AssessModel:       getEnv("ASSESS_MODEL", "google/gemini-2.5-flash"),
		PipelineEnabled:   getEnvBool("PIPELINE_ENABLED", true),
		PipelineInterval:  time.Second * time.Duration(getEnvInt("PIPELINE_INTERVAL_SECONDS", 300)),
		QueuePollInterval: time.Second * time.Duration(getEnvInt("QUEUE_POLL_INTERVAL_SECONDS", 2)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ProviderTimeout:   time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 180)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.AirtablePAT != "" && cfg.AirtableBaseID == "" {
		return nil, fmt.Errorf("AIRTABLE_BASE_ID is required when AIRTABLE_PAT is set")
	}

	return cfg, nil
}

// AirtableConfigured reports whether the social pipeline can reach Airtable.
func (c *Config) AirtableConfigured() bool {
	return c.AirtablePAT != "" && c.AirtableBaseID != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
