// Package services contains the gateway's business logic: statement
// splitting, risk classification, safety modes, confirmation tokens, the
// authorization gate, and the per-subsystem operation managers.
package services

import (
	"context"
	"time"

	"github.com/warden-db/warden/pkg/models"
)

// QueryManager handles SQL batches end to end: split, classify, gate,
// execute, record.
type QueryManager interface {
	// HandleQuery validates and executes a raw SQL string. A non-empty
	// confirmationID is consumed to authorize a high-risk batch.
	// migrationName optionally names the migration record for mutating
	// batches.
	HandleQuery(ctx context.Context, rawSQL, confirmationID, migrationName string) (*models.QueryResult, error)

	// ListMigrations reads the migration ledger.
	ListMigrations(ctx context.Context, opts models.MigrationListOptions) ([]models.MigrationRecord, error)
}

// ManagementManager gates and executes control-plane REST calls.
type ManagementManager interface {
	ExecuteRequest(ctx context.Context, req *models.ManagementRequest, confirmationID string) (map[string]interface{}, error)
}

// SDKManager gates and dispatches admin SDK method calls.
type SDKManager interface {
	CallMethod(ctx context.Context, call *models.SDKCall, confirmationID string) (map[string]interface{}, error)
}

// SafetyRegistry tracks the active safety mode per client type.
type SafetyRegistry interface {
	// Mode returns the active mode for a client. Unregistered clients
	// report SafetyModeSafe.
	Mode(client models.ClientType) models.SafetyMode

	// SetMode switches a client's mode. Idempotent.
	SetMode(client models.ClientType, mode models.SafetyMode) error

	// Modes returns a snapshot of all registered clients and their modes.
	Modes() map[models.ClientType]models.SafetyMode
}

// ConfirmationLedger issues and consumes single-use confirmation tokens.
type ConfirmationLedger interface {
	// Create stores a token bound to the operation fingerprint and
	// returns its id.
	Create(fingerprint string) string

	// Consume atomically validates and deletes the token. It fails if
	// the id is unknown, the token has expired, or the fingerprint does
	// not match; in every failure case the token is gone afterwards.
	Consume(id, fingerprint string) error

	// Stop terminates the background expiry sweep.
	Stop()
}

// AuthorizationGate decides whether a described operation may run.
type AuthorizationGate interface {
	Authorize(descriptor models.OperationDescriptor, confirmationID string) models.Decision
}

// Logger defines the logging interface used by services.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines the metrics interface used by services.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer measures operation duration.
type Timer interface {
	Stop() time.Duration
}
