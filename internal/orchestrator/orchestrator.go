// Package orchestrator sequences transcript retrieval and the two completion stages.
package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/llm"
	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/prompt"
	"github.com/lexiqai/knowledge-extractor/internal/transcript"
)

// ErrNoQuestions is returned when the run is configured to stop without a question catalogue.
var ErrNoQuestions = errors.New("no questions were generated for this video")

// Fetcher retrieves the transcript for a video URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*transcript.Transcript, error)
}

// Orchestrator runs the extraction pipeline. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	fetcher      Fetcher
	completer    llm.Completer
	abortOnEmpty bool
	logger       zerolog.Logger
}

// Option is a functional option for Orchestrator.
type Option func(*Orchestrator)

// WithAbortOnEmptyQuestions stops a run before the answer stage when the question
// stage fails or returns nothing.
func WithAbortOnEmptyQuestions(abort bool) Option {
	return func(o *Orchestrator) {
		o.abortOnEmpty = abort
	}
}

// WithLogger sets the base logger; each run derives a child with its correlation id.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an Orchestrator.
func New(fetcher Fetcher, completer llm.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:   fetcher,
		completer: completer,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes fetch, question and answer stages for rawURL.
//
// A fetch failure is returned as is and no completion is requested. Completion failures
// do not fail the run: the affected field stays empty and a warning is recorded. A run
// whose ctx is done after a completion stage returns ctx.Err() and requests nothing more.
func (o *Orchestrator) Run(ctx context.Context, rawURL string, progress ProgressFunc) (*Result, error) {
	runID := observability.NewCorrelationID()
	if id, ok := CorrelationIDFrom(ctx); ok {
		runID = id
	}
	logger := o.logger.With().Str("correlation_id", runID).Logger()
	metrics := observability.NewExtractionMetrics(runID)

	metrics.RecordExtractionStart()
	status := "error"
	defer func() { metrics.RecordExtractionEnd(status) }()

	emit := func(stage Stage, msg string) {
		if progress != nil {
			progress(Progress{Stage: stage, Message: msg})
		}
	}

	emit(StageFetching, MessageFetching)
	metrics.RecordStageStart(string(StageFetching))
	tr, err := o.fetcher.Fetch(ctx, rawURL)
	metrics.RecordStageEnd(string(StageFetching), err == nil)
	if err != nil {
		metrics.RecordError("fetch_failed", "transcript")
		logger.Warn().Err(err).Str("url", rawURL).Msg("Transcript fetch failed")
		return nil, err
	}

	logger = logger.With().Str("video_id", tr.VideoID).Logger()
	logger.Info().
		Int("segments", len(tr.Segments)).
		Int("document_chars", len(tr.Document)).
		Str("language", tr.Language).
		Msg("Transcript fetched")

	result := &Result{RunID: runID, VideoID: tr.VideoID}

	emit(StageQuestions, MessageQuestions)
	questions, err := o.complete(ctx, metrics, logger, StageQuestions, prompt.Questions(tr.Document))
	if ctx.Err() != nil {
		status = "canceled"
		logger.Info().Err(ctx.Err()).Str("stage", string(StageQuestions)).Msg("Extraction canceled")
		return nil, ctx.Err()
	}
	if err != nil {
		result.Warnings = append(result.Warnings, "Question generation failed: "+err.Error())
	}
	result.Questions = questions

	if o.abortOnEmpty && strings.TrimSpace(questions) == "" {
		logger.Warn().Msg("No questions generated, skipping answer stage")
		if err != nil {
			return nil, errors.Join(ErrNoQuestions, err)
		}
		return nil, ErrNoQuestions
	}

	emit(StageAnswers, MessageAnswers)
	answers, err := o.complete(ctx, metrics, logger, StageAnswers, prompt.Answers(tr.Document, questions))
	if ctx.Err() != nil {
		status = "canceled"
		logger.Info().Err(ctx.Err()).Str("stage", string(StageAnswers)).Msg("Extraction canceled")
		return nil, ctx.Err()
	}
	if err != nil {
		result.Warnings = append(result.Warnings, "Answer generation failed: "+err.Error())
	}
	result.Answers = answers

	result.Status = MessageDone
	emit(StageDone, MessageDone)

	status = "success"
	if result.Degraded() {
		status = "degraded"
	}
	logger.Info().
		Str("status", status).
		Int("questions_chars", len(result.Questions)).
		Int("answers_chars", len(result.Answers)).
		Msg("Extraction finished")
	return result, nil
}

func (o *Orchestrator) complete(ctx context.Context, metrics *observability.Metrics, logger zerolog.Logger, stage Stage, p string) (string, error) {
	metrics.RecordStageStart(string(stage))
	out, err := o.completer.Complete(ctx, p)
	metrics.RecordStageEnd(string(stage), err == nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		metrics.RecordError("completion_failed", string(stage))
		logger.Error().Err(err).Str("stage", string(stage)).Msg("Completion stage failed")
		return "", err
	}
	return out, nil
}
