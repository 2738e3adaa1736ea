// Package llm sends single-prompt chat completions to an OpenAI-compatible service.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no credential is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
	// ErrMissingModel is returned when no model name is configured.
	ErrMissingModel = errors.New("MODEL_NAME is not set")
)

// Completer turns one prompt into one completion.
//
// An empty string with a nil error is a legitimate empty answer from the model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompletionError reports a failed completion request.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("llm completion failed: %v", e.Err)
	}
	return fmt.Sprintf("llm completion with model %s failed: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
