package services

import (
	"context"
	"time"

	"github.com/warden-db/warden/pkg/models"
)

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// nopMetrics discards all metrics.
type nopMetrics struct{}

func (nopMetrics) IncrementCounter(name string, labels ...string)               {}
func (nopMetrics) RecordHistogram(name string, value float64, labels ...string) {}
func (nopMetrics) RecordGauge(name string, value float64, labels ...string)     {}
func (nopMetrics) StartTimer(name string) Timer                                 { return nopTimer{} }

type nopTimer struct{}

func (nopTimer) Stop() time.Duration { return 0 }

// fakeExecutor records executed batches and returns canned results.
type fakeExecutor struct {
	readOnlyCalls  [][]string
	readWriteCalls [][]string
	results        []models.StatementResult
	err            error
}

func (f *fakeExecutor) RunReadOnly(ctx context.Context, statements []string) ([]models.StatementResult, error) {
	f.readOnlyCalls = append(f.readOnlyCalls, statements)
	return f.results, f.err
}

func (f *fakeExecutor) RunReadWrite(ctx context.Context, statements []string) ([]models.StatementResult, error) {
	f.readWriteCalls = append(f.readWriteCalls, statements)
	return f.results, f.err
}

func (f *fakeExecutor) Close() {}

// fakeMigrationLedger records migration writes.
type fakeMigrationLedger struct {
	records   []models.MigrationRecord
	recordErr error
	listed    []models.MigrationRecord
}

func (f *fakeMigrationLedger) Record(ctx context.Context, record models.MigrationRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeMigrationLedger) List(ctx context.Context, opts models.MigrationListOptions) ([]models.MigrationRecord, error) {
	return f.listed, nil
}

// newUnsafeRegistry returns a registry with the given client in unsafe mode.
func newUnsafeRegistry(clients ...models.ClientType) SafetyRegistry {
	registry := NewSafetyRegistry(nopLogger{})
	for _, c := range clients {
		_ = registry.SetMode(c, models.SafetyModeUnsafe)
	}
	return registry
}

// newTestGate builds a gate with a fresh ledger; the ledger is returned for
// direct token manipulation.
func newTestGate(registry SafetyRegistry) (AuthorizationGate, ConfirmationLedger) {
	ledger := NewConfirmationLedger(5*time.Minute, 0, nopLogger{}, nopMetrics{})
	gate := NewAuthorizationGate(registry, ledger, nopLogger{}, nopMetrics{})
	return gate, ledger
}
