package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

const (
	createLedgerSchema = `CREATE SCHEMA IF NOT EXISTS warden`
	createLedgerTable  = `CREATE TABLE IF NOT EXISTS warden.migrations (
		version    text PRIMARY KEY,
		name       text NOT NULL,
		statements text[] NOT NULL,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`
)

// MigrationLedger persists migration records in warden.migrations. The
// schema and table are created lazily on first use.
type MigrationLedger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger

	initMu sync.Mutex
	ready  bool
}

// NewMigrationLedger creates a ledger on an existing pool.
func NewMigrationLedger(pool *pgxpool.Pool, logger zerolog.Logger) *MigrationLedger {
	return &MigrationLedger{
		pool:   pool,
		logger: logger.With().Str("component", "migration-ledger").Logger(),
	}
}

// Record appends one migration record.
func (l *MigrationLedger) Record(ctx context.Context, record models.MigrationRecord) error {
	if err := l.ensure(ctx); err != nil {
		return err
	}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO warden.migrations (version, name, statements) VALUES ($1, $2, $3)`,
		record.Version, record.Name, record.Statements)
	if err != nil {
		return errors.Wrap(err, errors.CodeExecutionFailed, "failed to record migration")
	}
	return nil
}

// List reads recorded migrations, newest first.
func (l *MigrationLedger) List(ctx context.Context, opts models.MigrationListOptions) ([]models.MigrationRecord, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}

	columns := "version, name, applied_at"
	if opts.IncludeStatements {
		columns += ", statements"
	}

	var (
		conditions []string
		args       []interface{}
	)
	if opts.NamePattern != "" {
		args = append(args, opts.NamePattern)
		conditions = append(conditions, fmt.Sprintf("name LIKE $%d", len(args)))
	}

	query := "SELECT " + columns + " FROM warden.migrations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY version DESC LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to list migrations")
	}
	defer rows.Close()

	var records []models.MigrationRecord
	for rows.Next() {
		var record models.MigrationRecord
		if opts.IncludeStatements {
			err = rows.Scan(&record.Version, &record.Name, &record.AppliedAt, &record.Statements)
		} else {
			err = rows.Scan(&record.Version, &record.Name, &record.AppliedAt)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to scan migration record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to read migrations")
	}

	return records, nil
}

// ensure creates the ledger schema and table once. Failures are not
// cached, so a transient error is retried on the next call.
func (l *MigrationLedger) ensure(ctx context.Context) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if l.ready {
		return nil
	}
	for _, stmt := range []string{createLedgerSchema, createLedgerTable} {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.CodeUnavailable,
				"failed to initialize migration ledger")
		}
	}
	l.ready = true
	l.logger.Debug().Msg("Migration ledger ready")
	return nil
}
