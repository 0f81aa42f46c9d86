// Package repositories defines data access interfaces for the gateway.
package repositories

import (
	"context"

	"github.com/warden-db/warden/pkg/models"
)

// SQLExecutor runs statement batches against the database. Both methods
// execute all statements inside a single transaction and roll back on the
// first failure, so a batch either fully applies or not at all.
type SQLExecutor interface {
	// RunReadOnly executes the batch in a read-only transaction. The
	// database rejects any write attempt that slipped past
	// classification.
	RunReadOnly(ctx context.Context, statements []string) ([]models.StatementResult, error)

	// RunReadWrite executes the batch in a read-write transaction.
	RunReadWrite(ctx context.Context, statements []string) ([]models.StatementResult, error)

	// Close releases the underlying pool.
	Close()
}

// MigrationLedger records schema-changing batches.
type MigrationLedger interface {
	// Record appends a migration record, creating the ledger schema on
	// first use.
	Record(ctx context.Context, record models.MigrationRecord) error

	// List reads recorded migrations, newest first.
	List(ctx context.Context, opts models.MigrationListOptions) ([]models.MigrationRecord, error)
}

// ManagementClient executes control-plane REST calls against the
// management API.
type ManagementClient interface {
	// Do sends the request and decodes the JSON response body. A nil map
	// is returned for empty response bodies.
	Do(ctx context.Context, method, path string, query map[string]string, body map[string]interface{}) (map[string]interface{}, error)
}

// SDKDispatcher executes admin SDK method calls.
type SDKDispatcher interface {
	// Dispatch invokes the named method with its parameters and returns
	// the decoded response.
	Dispatch(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error)
}
