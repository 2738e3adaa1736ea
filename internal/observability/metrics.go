package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	activeExtractions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knowledge_extractor_active_extractions",
		Help: "Number of pipeline runs in progress",
	})

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_extractor_extractions_total",
		Help: "Total number of pipeline runs by outcome",
	}, []string{"status"})

	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knowledge_extractor_extraction_duration_seconds",
		Help:    "Duration of complete pipeline runs in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knowledge_extractor_stage_latency_seconds",
		Help:    "Latency of a single pipeline stage in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage", "status"})

	// Transcript metrics
	transcriptFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_extractor_transcript_fetches_total",
		Help: "Total number of transcript fetches by outcome",
	}, []string{"status"})

	// LLM metrics
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_extractor_llm_requests_total",
		Help: "Total number of LLM completion requests",
	}, []string{"status"})

	llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knowledge_extractor_llm_latency_seconds",
		Help:    "LLM completion latency in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_extractor_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "knowledge_extractor_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_extractor_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single pipeline run
type Metrics struct {
	runID      string
	startTime  time.Time
	stageStart map[string]time.Time
	mu         sync.Mutex
}

// NewExtractionMetrics creates a new metrics tracker for a pipeline run
func NewExtractionMetrics(runID string) *Metrics {
	return &Metrics{
		runID:      runID,
		startTime:  time.Now(),
		stageStart: make(map[string]time.Time),
	}
}

// RecordExtractionStart records the start of a run
func (m *Metrics) RecordExtractionStart() {
	activeExtractions.Inc()
}

// RecordExtractionEnd records the end of a run with its outcome ("success", "degraded", "canceled", "error")
func (m *Metrics) RecordExtractionEnd(status string) {
	activeExtractions.Dec()
	extractionsTotal.WithLabelValues(status).Inc()
	extractionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordStageStart records the start of a pipeline stage
func (m *Metrics) RecordStageStart(stage string) {
	m.mu.Lock()
	m.stageStart[stage] = time.Now()
	m.mu.Unlock()
}

// RecordStageEnd records the end of a pipeline stage
func (m *Metrics) RecordStageEnd(stage string, success bool) {
	m.mu.Lock()
	start, ok := m.stageStart[stage]
	delete(m.stageStart, stage)
	m.mu.Unlock()

	if !ok {
		return
	}
	stageLatency.WithLabelValues(stage, statusLabel(success)).Observe(time.Since(start).Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	RecordError(errorType, component)
}

// RecordError records an error outside of a pipeline run
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordTranscriptFetch records the outcome of one transcript fetch
func RecordTranscriptFetch(status string) {
	transcriptFetches.WithLabelValues(status).Inc()
}

// RecordLLMRequest records one completion request and its latency
func RecordLLMRequest(success bool, latency time.Duration) {
	llmRequests.WithLabelValues(statusLabel(success)).Inc()
	llmLatency.Observe(latency.Seconds())
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
