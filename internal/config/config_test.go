package config

import (
	"os"
	"testing"
	"time"
)

// unsetEnv removes keys for the duration of the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-openai-key")
	t.Setenv("MODEL_NAME", "gpt-4o-mini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}

	if cfg.ModelName != "gpt-4o-mini" {
		t.Errorf("Expected ModelName 'gpt-4o-mini', got '%s'", cfg.ModelName)
	}
}

func TestLoad_MissingCredentialsIsNotFatal(t *testing.T) {
	unsetEnv(t, "OPENAI_API_KEY", "MODEL_NAME")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected missing credentials to be accepted at startup, got %v", err)
	}
	if cfg.OpenAIAPIKey != "" || cfg.ModelName != "" {
		t.Errorf("Expected empty credentials, got key=%q model=%q", cfg.OpenAIAPIKey, cfg.ModelName)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "PORT", "TRANSCRIPT_LANGUAGES", "LLM_TIMEOUT", "TRANSCRIPT_TIMEOUT",
		"ABORT_ON_EMPTY_QUESTIONS", "HTTP_WRITE_TIMEOUT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if len(cfg.TranscriptLanguages) != 1 || cfg.TranscriptLanguages[0] != "en" {
		t.Errorf("Expected default TranscriptLanguages [en], got %v", cfg.TranscriptLanguages)
	}

	if cfg.LLMTimeout != 120 {
		t.Errorf("Expected default LLMTimeout 120, got %d", cfg.LLMTimeout)
	}

	if cfg.TranscriptTimeout != 15 {
		t.Errorf("Expected default TranscriptTimeout 15, got %d", cfg.TranscriptTimeout)
	}

	if cfg.AbortOnEmptyQuestions {
		t.Error("Expected default AbortOnEmptyQuestions false, got true")
	}

	if cfg.HTTPWriteTimeout != 300 {
		t.Errorf("Expected default HTTPWriteTimeout 300, got %d", cfg.HTTPWriteTimeout)
	}
}

func TestLoad_TranscriptLanguagesList(t *testing.T) {
	t.Setenv("TRANSCRIPT_LANGUAGES", "de,en")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if len(cfg.TranscriptLanguages) != 2 || cfg.TranscriptLanguages[0] != "de" || cfg.TranscriptLanguages[1] != "en" {
		t.Errorf("Expected [de en], got %v", cfg.TranscriptLanguages)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative llm timeout", "LLM_TIMEOUT", "-1"},
		{"zero transcript timeout", "TRANSCRIPT_TIMEOUT", "0"},
		{"zero retry attempts", "RETRY_MAX_ATTEMPTS", "0"},
		{"zero breaker threshold", "CIRCUIT_BREAKER_MAX_FAILURES", "0"},
		{"not a number", "LLM_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{LLMTimeout: 90, TranscriptTimeout: 7}

	if got := cfg.LLMRequestTimeout(); got != 90*time.Second {
		t.Errorf("Expected LLMRequestTimeout 90s, got %v", got)
	}
	if got := cfg.TranscriptRequestTimeout(); got != 7*time.Second {
		t.Errorf("Expected TranscriptRequestTimeout 7s, got %v", got)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	unsetEnv(t, "CIRCUIT_BREAKER_MAX_FAILURES", "CIRCUIT_BREAKER_RESET_TIMEOUT",
		"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_BACKOFF")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	unsetEnv(t, "LOG_LEVEL", "LOG_PRETTY", "METRICS_ENABLED", "GRPC_HEALTH_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}

	if cfg.GRPCHealthPort != "" {
		t.Errorf("Expected gRPC health server disabled by default, got port %q", cfg.GRPCHealthPort)
	}
}
