package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/knowledge-extractor/internal/config"
	"github.com/lexiqai/knowledge-extractor/internal/llm"
	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/orchestrator"
	"github.com/lexiqai/knowledge-extractor/internal/resilience"
	"github.com/lexiqai/knowledge-extractor/internal/transcript"
	"github.com/lexiqai/knowledge-extractor/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("model", cfg.ModelName).
		Strs("transcript_languages", cfg.TranscriptLanguages).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Knowledge Extractor starting")

	if cfg.OpenAIAPIKey == "" || cfg.ModelName == "" {
		logger.Warn().Msg("OPENAI_API_KEY or MODEL_NAME not set, completions will fail until configured")
	}

	// Pipeline components
	transcripts := transcript.NewClient(
		transcript.WithHTTPClient(&http.Client{Timeout: cfg.TranscriptRequestTimeout()}),
		transcript.WithLanguages(cfg.TranscriptLanguages...),
		transcript.WithRetryConfig(&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		}),
		transcript.WithLogger(logger.With().Str("component", "transcript").Logger()),
	)

	llmOpts := []llm.Option{
		llm.WithTimeout(cfg.LLMRequestTimeout()),
		llm.WithCircuitBreaker(resilience.NewCircuitBreaker(
			"llm",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		)),
		llm.WithLogger(logger.With().Str("component", "llm").Logger()),
	}
	if cfg.OpenAIBaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.OpenAIBaseURL))
	}
	completer := llm.New(cfg.OpenAIAPIKey, cfg.ModelName, llmOpts...)

	pipeline := orchestrator.New(transcripts, completer,
		orchestrator.WithAbortOnEmptyQuestions(cfg.AbortOnEmptyQuestions),
		orchestrator.WithLogger(logger.With().Str("component", "orchestrator").Logger()),
	)

	// Create HTTP server
	mux := http.NewServeMux()
	web.NewServer(pipeline, web.WithLogger(logger)).Register(mux)

	// Health check endpoint
	mux.HandleFunc("GET /health", observability.HealthCheckHandler())

	// Readiness reflects whether completions can be made at all
	llmCheck := observability.DependencyCheck{
		Name: "llm",
		Check: func(ctx context.Context) (bool, error) {
			if err := completer.Check(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
	}
	mux.HandleFunc("GET /ready", observability.ReadinessHandler(llmCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional gRPC health service for orchestrators that probe over gRPC
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
		if err != nil {
			logger.Fatal().Err(err).Str("port", cfg.GRPCHealthPort).Msg("Failed to listen for gRPC health")
		}
		grpcHealth := observability.NewGRPCHealthServer(10*time.Second, llmCheck)
		go func() {
			logger.Info().Str("port", cfg.GRPCHealthPort).Msg("gRPC health service listening")
			if err := grpcHealth.Serve(ctx, lis); err != nil {
				logger.Error().Err(err).Msg("gRPC health service stopped")
			}
		}()
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
