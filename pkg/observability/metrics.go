package observability

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsClient implements MetricsClient using Prometheus collectors.
// Collectors are created lazily per metric name and registered with the
// default registry.
type PrometheusMetricsClient struct {
	namespace string
	subsystem string

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	mu sync.RWMutex
}

var (
	defaultMetricsOnce   sync.Once
	defaultMetricsClient MetricsClient
)

// NewMetricsClient returns the process-wide metrics client with the project
// default namespace. A single instance is shared so collectors register with
// the default Prometheus registry exactly once.
func NewMetricsClient() MetricsClient {
	defaultMetricsOnce.Do(func() {
		defaultMetricsClient = NewPrometheusMetricsClient("querycache", "")
	})
	return defaultMetricsClient
}

// NewPrometheusMetricsClient creates a new Prometheus metrics client
func NewPrometheusMetricsClient(namespace, subsystem string) *PrometheusMetricsClient {
	return &PrometheusMetricsClient{
		namespace:  namespace,
		subsystem:  subsystem,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// IncrementCounter increments a counter without labels
func (c *PrometheusMetricsClient) IncrementCounter(name string, value float64) {
	c.IncrementCounterWithLabels(name, value, nil)
}

// IncrementCounterWithLabels increments a counter with the given labels
func (c *PrometheusMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	counter := c.getOrCreateCounter(sanitizeMetricName(name), labelKeys(labels))
	counter.With(prometheus.Labels(labels)).Add(value)
}

// RecordGauge sets a gauge to the given value
func (c *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	gauge := c.getOrCreateGauge(sanitizeMetricName(name), labelKeys(labels))
	gauge.With(prometheus.Labels(labels)).Set(value)
}

// RecordHistogram records an observation in a histogram
func (c *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	histogram := c.getOrCreateHistogram(sanitizeMetricName(name), labelKeys(labels))
	histogram.With(prometheus.Labels(labels)).Observe(value)
}

// RecordCacheOperation records a cache operation with its outcome and duration
func (c *PrometheusMetricsClient) RecordCacheOperation(operation string, success bool, durationSeconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	c.RecordHistogram("cache_operation_duration_seconds", durationSeconds, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

// RecordLatency records the latency of an operation
func (c *PrometheusMetricsClient) RecordLatency(operation string, duration time.Duration) {
	c.RecordHistogram("operation_latency_seconds", duration.Seconds(), map[string]string{
		"operation": operation,
	})
}

// Close releases resources held by the client
func (c *PrometheusMetricsClient) Close() error {
	return nil
}

func (c *PrometheusMetricsClient) getOrCreateCounter(name string, labels []string) *prometheus.CounterVec {
	key := name + "|" + strings.Join(labels, ",")

	c.mu.RLock()
	counter, ok := c.counters[key]
	c.mu.RUnlock()
	if ok {
		return counter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok := c.counters[key]; ok {
		return counter
	}

	counter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      name,
	}, labels)
	c.counters[key] = counter
	return counter
}

func (c *PrometheusMetricsClient) getOrCreateGauge(name string, labels []string) *prometheus.GaugeVec {
	key := name + "|" + strings.Join(labels, ",")

	c.mu.RLock()
	gauge, ok := c.gauges[key]
	c.mu.RUnlock()
	if ok {
		return gauge
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gauge, ok := c.gauges[key]; ok {
		return gauge
	}

	gauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      name,
	}, labels)
	c.gauges[key] = gauge
	return gauge
}

func (c *PrometheusMetricsClient) getOrCreateHistogram(name string, labels []string) *prometheus.HistogramVec {
	key := name + "|" + strings.Join(labels, ",")

	c.mu.RLock()
	histogram, ok := c.histograms[key]
	c.mu.RUnlock()
	if ok {
		return histogram
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if histogram, ok := c.histograms[key]; ok {
		return histogram
	}

	histogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      name,
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
	}, labels)
	c.histograms[key] = histogram
	return histogram
}

// sanitizeMetricName converts dotted metric names to Prometheus-safe names
func sanitizeMetricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

// labelKeys returns the sorted label names for a label set
func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
