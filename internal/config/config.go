package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the knowledge extractor service
type Config struct {
	// Server configuration
	Port             string `envconfig:"PORT" default:"8080"`
	HTTPWriteTimeout int    `envconfig:"HTTP_WRITE_TIMEOUT" default:"300"` // seconds; covers the synchronous form and API paths

	// LLM configuration. Neither value is required at startup: a missing key or model
	// only fails the completion calls that need it.
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	ModelName     string `envconfig:"MODEL_NAME"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	LLMTimeout    int    `envconfig:"LLM_TIMEOUT" default:"120"` // seconds, 0 disables

	// Transcript service configuration
	TranscriptLanguages []string `envconfig:"TRANSCRIPT_LANGUAGES" default:"en"`
	TranscriptTimeout   int      `envconfig:"TRANSCRIPT_TIMEOUT" default:"15"` // seconds per HTTP request

	// Pipeline behaviour
	AbortOnEmptyQuestions bool `envconfig:"ABORT_ON_EMPTY_QUESTIONS" default:"false"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Transcript fetch attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:""`    // Serve grpc.health.v1 when set
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LLMTimeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT must not be negative")
	}
	if c.TranscriptTimeout <= 0 {
		return fmt.Errorf("TRANSCRIPT_TIMEOUT must be positive")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.CircuitBreakerMaxFailures < 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_MAX_FAILURES must be at least 1")
	}
	if len(c.TranscriptLanguages) == 0 {
		return fmt.Errorf("TRANSCRIPT_LANGUAGES must name at least one language")
	}
	return nil
}

// LLMRequestTimeout returns the per-completion timeout, zero meaning none.
func (c *Config) LLMRequestTimeout() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

// TranscriptRequestTimeout returns the timeout applied to each transcript HTTP request.
func (c *Config) TranscriptRequestTimeout() time.Duration {
	return time.Duration(c.TranscriptTimeout) * time.Second
}
