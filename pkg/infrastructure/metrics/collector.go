// Package metrics provides metrics collection for the operation gateway.
package metrics

import (
	"time"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncrementCounter increments a counter metric. Labels are passed as
	// name/value pairs.
	IncrementCounter(name string, labels ...string)

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(name string, value float64, labels ...string)

	// RecordGauge records a gauge metric value.
	RecordGauge(name string, value float64, labels ...string)

	// StartTimer starts a timer for measuring duration.
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	// Stop stops the timer and returns the elapsed duration.
	Stop() time.Duration
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

// NewNoOpCollector creates a new no-op collector.
func NewNoOpCollector() Collector {
	return &NoOpCollector{}
}

// IncrementCounter does nothing.
func (n *NoOpCollector) IncrementCounter(name string, labels ...string) {}

// RecordHistogram does nothing.
func (n *NoOpCollector) RecordHistogram(name string, value float64, labels ...string) {}

// RecordGauge does nothing.
func (n *NoOpCollector) RecordGauge(name string, value float64, labels ...string) {}

// StartTimer returns a timer that only measures elapsed time.
func (n *NoOpCollector) StartTimer(name string) Timer {
	return &noOpTimer{start: time.Now()}
}

type noOpTimer struct {
	start time.Time
}

func (t *noOpTimer) Stop() time.Duration {
	return time.Since(t.start)
}
