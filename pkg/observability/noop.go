package observability

import "time"

// NoopLogger is a logger implementation that discards all messages
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger, primarily for tests
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

// Debug is a no-op implementation
func (l *NoopLogger) Debug(msg string, fields map[string]interface{}) {}

// Info is a no-op implementation
func (l *NoopLogger) Info(msg string, fields map[string]interface{}) {}

// Warn is a no-op implementation
func (l *NoopLogger) Warn(msg string, fields map[string]interface{}) {}

// Error is a no-op implementation
func (l *NoopLogger) Error(msg string, fields map[string]interface{}) {}

// Fatal is a no-op implementation
func (l *NoopLogger) Fatal(msg string, fields map[string]interface{}) {}

// Debugf is a no-op implementation
func (l *NoopLogger) Debugf(format string, args ...interface{}) {}

// Infof is a no-op implementation
func (l *NoopLogger) Infof(format string, args ...interface{}) {}

// Warnf is a no-op implementation
func (l *NoopLogger) Warnf(format string, args ...interface{}) {}

// Errorf is a no-op implementation
func (l *NoopLogger) Errorf(format string, args ...interface{}) {}

// Fatalf is a no-op implementation
func (l *NoopLogger) Fatalf(format string, args ...interface{}) {}

// WithPrefix returns the logger unchanged
func (l *NoopLogger) WithPrefix(prefix string) Logger { return l }

// With returns the logger unchanged
func (l *NoopLogger) With(fields map[string]interface{}) Logger { return l }

// NoopMetricsClient is a metrics client implementation that discards all metrics
type NoopMetricsClient struct{}

// NewNoopMetricsClient creates a new no-op metrics client
func NewNoopMetricsClient() MetricsClient {
	return &NoopMetricsClient{}
}

// IncrementCounter is a no-op implementation
func (m *NoopMetricsClient) IncrementCounter(name string, value float64) {}

// IncrementCounterWithLabels is a no-op implementation
func (m *NoopMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
}

// RecordGauge is a no-op implementation
func (m *NoopMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {}

// RecordHistogram is a no-op implementation
func (m *NoopMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {}

// RecordCacheOperation is a no-op implementation
func (m *NoopMetricsClient) RecordCacheOperation(operation string, success bool, durationSeconds float64) {
}

// RecordLatency is a no-op implementation
func (m *NoopMetricsClient) RecordLatency(operation string, duration time.Duration) {}

// Close is a no-op implementation
func (m *NoopMetricsClient) Close() error { return nil }
