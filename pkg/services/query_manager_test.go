package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

func newTestQueryManager(registry SafetyRegistry) (*queryManager, *fakeExecutor, *fakeMigrationLedger) {
	executor := &fakeExecutor{}
	migrations := &fakeMigrationLedger{}
	gate, _ := newTestGate(registry)

	manager := NewQueryManager(executor, migrations, NewSQLClassifier(), gate,
		nopLogger{}, nopMetrics{}).(*queryManager)
	manager.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return manager, executor, migrations
}

func TestQueryManagerLowRiskRunsReadOnly(t *testing.T) {
	manager, executor, migrations := newTestQueryManager(NewSafetyRegistry(nopLogger{}))
	executor.results = []models.StatementResult{{Columns: []string{"?column?"}, Rows: [][]interface{}{{int32(1)}}}}

	result, err := manager.HandleQuery(context.Background(), "SELECT 1;", "", "")
	require.NoError(t, err)

	assert.True(t, result.ReadOnly)
	assert.Equal(t, "low", result.RiskLevel)
	require.Len(t, executor.readOnlyCalls, 1)
	assert.Equal(t, []string{"SELECT 1"}, executor.readOnlyCalls[0])
	assert.Empty(t, executor.readWriteCalls)
	assert.Empty(t, migrations.records)
}

func TestQueryManagerMediumRiskNeedsUnsafeMode(t *testing.T) {
	manager, executor, _ := newTestQueryManager(NewSafetyRegistry(nopLogger{}))

	_, err := manager.HandleQuery(context.Background(), "INSERT INTO t VALUES (1)", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeOperationNotAllowed, errors.GetCode(err))
	assert.Empty(t, executor.readOnlyCalls)
	assert.Empty(t, executor.readWriteCalls)
}

func TestQueryManagerMediumRiskInUnsafeMode(t *testing.T) {
	manager, executor, migrations := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	result, err := manager.HandleQuery(context.Background(), "INSERT INTO t VALUES (1)", "", "")
	require.NoError(t, err)

	assert.False(t, result.ReadOnly)
	assert.Equal(t, "medium", result.RiskLevel)
	require.Len(t, executor.readWriteCalls, 1)

	// A mutating batch leaves a migration record.
	require.Len(t, migrations.records, 1)
	assert.Equal(t, "20250314092653", migrations.records[0].Version)
	assert.Equal(t, "insert_into_t", migrations.records[0].Name)
}

func TestQueryManagerHighRiskConfirmationRoundTrip(t *testing.T) {
	manager, executor, migrations := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	// First attempt returns CONFIRMATION_REQUIRED with an id.
	_, err := manager.HandleQuery(context.Background(), "DROP TABLE t;", "", "")
	require.Error(t, err)
	require.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))
	id, ok := errors.ConfirmationID(err)
	require.True(t, ok)
	require.NotEmpty(t, id)
	assert.Empty(t, executor.readWriteCalls)

	// Resubmitting identical SQL with the id executes.
	_, err = manager.HandleQuery(context.Background(), "DROP TABLE t;", id, "")
	require.NoError(t, err)
	require.Len(t, executor.readWriteCalls, 1)
	assert.Equal(t, []string{"DROP TABLE t"}, executor.readWriteCalls[0])
	require.Len(t, migrations.records, 1)
	assert.Equal(t, "drop_table_t", migrations.records[0].Name)

	// The id is spent: replaying it asks for a new confirmation.
	_, err = manager.HandleQuery(context.Background(), "DROP TABLE t;", id, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))
	newID, _ := errors.ConfirmationID(err)
	assert.NotEqual(t, id, newID)
}

func TestQueryManagerConfirmationBoundToQueryText(t *testing.T) {
	manager, executor, _ := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	_, err := manager.HandleQuery(context.Background(), "DROP TABLE users", "", "")
	require.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))
	id, _ := errors.ConfirmationID(err)

	// A different statement with the same token is refused and gets its
	// own id.
	_, err = manager.HandleQuery(context.Background(), "DROP TABLE orders", id, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))
	otherID, _ := errors.ConfirmationID(err)
	assert.NotEqual(t, id, otherID)
	assert.Empty(t, executor.readWriteCalls)
}

func TestQueryManagerExtremeRiskAlwaysDenied(t *testing.T) {
	manager, executor, _ := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	_, err := manager.HandleQuery(context.Background(), "DROP DATABASE prod", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeOperationNotAllowed, errors.GetCode(err))
	assert.Empty(t, executor.readWriteCalls)
}

func TestQueryManagerBatchRiskIsMaximum(t *testing.T) {
	manager, executor, _ := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	// SELECT plus INSERT grades medium: executes read-write without
	// confirmation.
	_, err := manager.HandleQuery(context.Background(),
		"SELECT 1; INSERT INTO t VALUES (1)", "", "")
	require.NoError(t, err)
	require.Len(t, executor.readWriteCalls, 1)
	assert.Equal(t, []string{"SELECT 1", "INSERT INTO t VALUES (1)"}, executor.readWriteCalls[0])
}

func TestQueryManagerEmptyQuery(t *testing.T) {
	manager, _, _ := newTestQueryManager(NewSafetyRegistry(nopLogger{}))

	for _, input := range []string{"", "   ", ";;", "-- only a comment"} {
		_, err := manager.HandleQuery(context.Background(), input, "", "")
		require.Error(t, err, "input %q", input)
		assert.Equal(t, errors.CodeEmptyQuery, errors.GetCode(err), "input %q", input)
	}
}

func TestQueryManagerSyntaxError(t *testing.T) {
	manager, _, _ := newTestQueryManager(NewSafetyRegistry(nopLogger{}))

	_, err := manager.HandleQuery(context.Background(), "SELECT 'oops", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSyntaxError, errors.GetCode(err))
}

func TestQueryManagerMigrationNameSanitized(t *testing.T) {
	manager, _, migrations := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))

	_, err := manager.HandleQuery(context.Background(),
		"INSERT INTO t VALUES (1)", "", "  Add User Table! (v2)  ")
	require.NoError(t, err)

	require.Len(t, migrations.records, 1)
	assert.Equal(t, "add_user_table_v2", migrations.records[0].Name)
}

func TestQueryManagerMigrationFailureDoesNotFailQuery(t *testing.T) {
	manager, executor, migrations := newTestQueryManager(newUnsafeRegistry(models.ClientDatabase))
	migrations.recordErr = errors.New(errors.CodeUnavailable, "ledger down")

	result, err := manager.HandleQuery(context.Background(), "INSERT INTO t VALUES (1)", "", "")
	require.NoError(t, err)
	assert.NotNil(t, result)
	require.Len(t, executor.readWriteCalls, 1)
}

func TestQueryManagerReadOnlyBatchNotRecorded(t *testing.T) {
	manager, _, migrations := newTestQueryManager(NewSafetyRegistry(nopLogger{}))

	_, err := manager.HandleQuery(context.Background(), "SELECT 1; SELECT 2", "", "")
	require.NoError(t, err)
	assert.Empty(t, migrations.records)
}

func TestSanitizeMigrationName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Add users", "add_users"},
		{"  spaced   out  ", "spaced_out"},
		{"punct!@#uation", "punctuation"},
		{"", ""},
		{"___", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeMigrationName(tt.input), "input %q", tt.input)
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, sanitizeMigrationName(string(long)), 100)
}

func TestDescribeStatement(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"CREATE TABLE users (id int)", "create_table_users"},
		{"CREATE TABLE IF NOT EXISTS app.users (id int)", "create_table_users"},
		{"ALTER TABLE users ADD COLUMN x int", "alter_table_users"},
		{"DROP INDEX idx_users_email", "drop_index_idx_users_email"},
		{"INSERT INTO orders VALUES (1)", "insert_into_orders"},
		{"UPDATE orders SET total = 0", "update_orders"},
		{"DELETE FROM orders WHERE id = 1", "delete_from_orders"},
		{"TRUNCATE TABLE orders", "truncate_table_orders"},
		{`CREATE VIEW "Reporting" AS SELECT 1`, "create_view_reporting"},
		{"GRANT ALL ON t TO someone", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeStatement(tt.stmt), "stmt %q", tt.stmt)
	}
}
