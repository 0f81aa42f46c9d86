package server

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/warden-db/warden/pkg/infrastructure/metrics"
	"github.com/warden-db/warden/pkg/services"
)

// serviceLogger adapts zerolog to the services.Logger interface.
type serviceLogger struct {
	logger zerolog.Logger
}

func newServiceLogger(logger zerolog.Logger, component string) services.Logger {
	return &serviceLogger{
		logger: logger.With().Str("component", component).Logger(),
	}
}

func (l *serviceLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Debug(), msg, keysAndValues)
}

func (l *serviceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Info(), msg, keysAndValues)
}

func (l *serviceLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Warn(), msg, keysAndValues)
}

func (l *serviceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Error(), msg, keysAndValues)
}

func (l *serviceLogger) emit(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		event = event.Interface(key, keysAndValues[i+1])
	}
	event.Msg(msg)
}

// serviceMetrics adapts a metrics.Collector to services.MetricsCollector.
type serviceMetrics struct {
	collector metrics.Collector
}

func newServiceMetrics(collector metrics.Collector) services.MetricsCollector {
	return &serviceMetrics{collector: collector}
}

func (m *serviceMetrics) IncrementCounter(name string, labels ...string) {
	m.collector.IncrementCounter(name, labels...)
}

func (m *serviceMetrics) RecordHistogram(name string, value float64, labels ...string) {
	m.collector.RecordHistogram(name, value, labels...)
}

func (m *serviceMetrics) RecordGauge(name string, value float64, labels ...string) {
	m.collector.RecordGauge(name, value, labels...)
}

func (m *serviceMetrics) StartTimer(name string) services.Timer {
	return m.collector.StartTimer(name)
}
