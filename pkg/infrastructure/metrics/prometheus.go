package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warden"

// PrometheusCollector implements Collector using Prometheus. Metric
// vectors are registered lazily on first use.
type PrometheusCollector struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	timers     *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus collector.
func NewPrometheusCollector() Collector {
	timers := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of timed gateway operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	prometheus.MustRegister(timers)

	return &PrometheusCollector{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		timers:     timers,
	}
}

// IncrementCounter increments a counter metric.
func (p *PrometheusCollector) IncrementCounter(name string, labels ...string) {
	labelNames, labelValues := parseLabelPairs(labels)

	p.mu.Lock()
	counter, exists := p.counters[name]
	if !exists {
		counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Counter for %s", name),
			},
			labelNames,
		)
		prometheus.MustRegister(counter)
		p.counters[name] = counter
	}
	p.mu.Unlock()

	counter.WithLabelValues(labelValues...).Inc()
}

// RecordHistogram records a value in a histogram metric.
func (p *PrometheusCollector) RecordHistogram(name string, value float64, labels ...string) {
	labelNames, labelValues := parseLabelPairs(labels)

	p.mu.Lock()
	histogram, exists := p.histograms[name]
	if !exists {
		histogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Histogram for %s", name),
				Buckets:   prometheus.DefBuckets,
			},
			labelNames,
		)
		prometheus.MustRegister(histogram)
		p.histograms[name] = histogram
	}
	p.mu.Unlock()

	histogram.WithLabelValues(labelValues...).Observe(value)
}

// RecordGauge records a gauge metric value.
func (p *PrometheusCollector) RecordGauge(name string, value float64, labels ...string) {
	labelNames, labelValues := parseLabelPairs(labels)

	p.mu.Lock()
	gauge, exists := p.gauges[name]
	if !exists {
		gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Gauge for %s", name),
			},
			labelNames,
		)
		prometheus.MustRegister(gauge)
		p.gauges[name] = gauge
	}
	p.mu.Unlock()

	gauge.WithLabelValues(labelValues...).Set(value)
}

// StartTimer starts a timer whose duration is observed on Stop.
func (p *PrometheusCollector) StartTimer(name string) Timer {
	return &prometheusTimer{
		start:     time.Now(),
		name:      name,
		collector: p,
	}
}

type prometheusTimer struct {
	start     time.Time
	name      string
	collector *PrometheusCollector
}

func (t *prometheusTimer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.collector.timers.WithLabelValues(t.name).Observe(elapsed.Seconds())
	return elapsed
}

// parseLabelPairs parses label pairs from variadic string arguments.
// Expected format: "key1", "value1", "key2", "value2", ...
func parseLabelPairs(labels []string) ([]string, []string) {
	if len(labels)%2 != 0 {
		// Drop a trailing unpaired label.
		labels = labels[:len(labels)-1]
	}

	labelNames := make([]string, 0, len(labels)/2)
	labelValues := make([]string, 0, len(labels)/2)

	for i := 0; i < len(labels); i += 2 {
		labelNames = append(labelNames, labels[i])
		labelValues = append(labelValues, labels[i+1])
	}

	return labelNames, labelValues
}

// Server serves Prometheus metrics over HTTP on its own address.
type Server struct {
	address string
	server  *http.Server
}

// NewServer creates a new metrics server.
func NewServer(address string) *Server {
	return &Server{
		address: address,
	}
}

// Start starts the metrics server. Blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    s.address,
		Handler: mux,
	}

	return s.server.ListenAndServe()
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
