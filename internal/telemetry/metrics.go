package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter       metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	ChunksProduced       metric.Int64Counter
	ChunkCoverage        metric.Float64Histogram
	EmbedDuration        metric.Float64Histogram
	IngestionSuccessRate metric.Float64Histogram
	FailedChunks         metric.Int64Counter
	CircuitBreakerState  metric.Int64Counter
	DatabaseOperations   metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("hebrew-rag-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksProduced, err := meter.Int64Counter(
		"chunking.chunks.total",
		metric.WithDescription("Total chunks produced by the chunking engine"),
	)
	if err != nil {
		return nil, err
	}

	chunkCoverage, err := meter.Float64Histogram(
		"chunking.coverage.ratio",
		metric.WithDescription("Chunked-to-source character coverage per document"),
	)
	if err != nil {
		return nil, err
	}

	embedDuration, err := meter.Float64Histogram(
		"embedding.call.duration",
		metric.WithDescription("Embedding API call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestionSuccessRate, err := meter.Float64Histogram(
		"ingestion.success.rate",
		metric.WithDescription("Per-document ingestion success rate"),
	)
	if err != nil {
		return nil, err
	}

	failedChunks, err := meter.Int64Counter(
		"ingestion.chunks.failed",
		metric.WithDescription("Chunks that exhausted all ingestion attempts"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:       requestCounter,
		RequestDuration:      requestDuration,
		ChunksProduced:       chunksProduced,
		ChunkCoverage:        chunkCoverage,
		EmbedDuration:        embedDuration,
		IngestionSuccessRate: ingestionSuccessRate,
		FailedChunks:         failedChunks,
		CircuitBreakerState:  circuitBreakerState,
		DatabaseOperations:   databaseOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordChunking records the outcome of one document chunking run
func (m *Metrics) RecordChunking(chunks int64, coverage float64, extractionType string) {
	attrs := []attribute.KeyValue{
		attribute.String("extraction.type", extractionType),
	}

	m.ChunksProduced.Add(context.Background(), chunks, metric.WithAttributes(attrs...))
	m.ChunkCoverage.Record(context.Background(), coverage, metric.WithAttributes(attrs...))
}

// RecordEmbedCall records one embedding API call
func (m *Metrics) RecordEmbedCall(duration float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("service", "gemini"),
		attribute.Bool("success", success),
	}

	m.EmbedDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestion records the outcome of one ingestion run
func (m *Metrics) RecordIngestion(successRate float64, failedChunks int64, verdict string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingestion.verdict", verdict),
	}

	m.IngestionSuccessRate.Record(context.Background(), successRate, metric.WithAttributes(attrs...))
	if failedChunks > 0 {
		m.FailedChunks.Add(context.Background(), failedChunks, metric.WithAttributes(attrs...))
	}
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDatabaseOperation records database operation metrics
func (m *Metrics) RecordDatabaseOperation(operation, collection string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.Bool("db.success", success),
	}

	m.DatabaseOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
