package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/resilience"
)

const breakerName = "llm"

// OpenAIClient implements Completer with the OpenAI chat completions API.
type OpenAIClient struct {
	client  oai.Client
	apiKey  string
	model   string
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

type config struct {
	baseURL string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// Option is a functional option for OpenAIClient.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *config) {
		c.breaker = cb
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New constructs an OpenAIClient. An empty apiKey or model is accepted here and
// reported by Complete, so the service can start before it is fully configured.
func New(apiKey, model string, opts ...Option) *OpenAIClient {
	cfg := &config{
		timeout: 120 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.breaker == nil {
		cfg.breaker = resilience.NewCircuitBreaker(breakerName, 5, 30*time.Second)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &OpenAIClient{
		client:  oai.NewClient(reqOpts...),
		apiKey:  apiKey,
		model:   model,
		breaker: cfg.breaker,
		logger:  cfg.logger,
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Check reports whether the client is configured well enough to make requests and
// whether the circuit would currently let one through.
func (c *OpenAIClient) Check(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if c.model == "" {
		return ErrMissingModel
	}
	if !c.breaker.Available() {
		_, requests, failures, rate := c.breaker.GetStats()
		return fmt.Errorf("%w: %d of %d requests failed (%.0f%%)", resilience.ErrCircuitOpen, failures, requests, rate)
	}
	return nil
}

// Complete sends prompt as a single user message and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &CompletionError{Model: c.model, Err: ErrMissingAPIKey}
	}
	if c.model == "" {
		return "", &CompletionError{Err: ErrMissingModel}
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	}

	var content string
	service := c.breaker.Name()
	start := time.Now()
	err := c.breaker.CallContext(ctx, func() error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	latency := time.Since(start)

	observability.UpdateCircuitBreakerState(service, int(c.breaker.GetState()))
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug().
				Err(err).
				Str("model", c.model).
				Dur("latency", latency).
				Msg("Chat completion abandoned by caller")
			return "", &CompletionError{Model: c.model, Err: err}
		}
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			observability.IncrementCircuitBreakerFailures(service)
			observability.RecordLLMRequest(false, latency)
		}
		observability.RecordError("completion_failed", "llm")
		c.logger.Error().
			Err(err).
			Str("model", c.model).
			Str("breaker", service).
			Dur("latency", latency).
			Msg("Chat completion failed")
		return "", &CompletionError{Model: c.model, Err: err}
	}

	observability.RecordLLMRequest(true, latency)
	c.logger.Debug().
		Str("model", c.model).
		Dur("latency", latency).
		Int("prompt_chars", len(prompt)).
		Int("completion_chars", len(content)).
		Msg("Chat completion received")
	return content, nil
}
