package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

// Executor runs statement batches in single transactions. Read-only
// batches run with the transaction's access mode set to read only, so the
// database itself blocks any write that classification missed.
type Executor struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewExecutor creates an executor on an existing pool.
func NewExecutor(pool *pgxpool.Pool, logger zerolog.Logger) *Executor {
	return &Executor{
		pool:   pool,
		logger: logger.With().Str("component", "sql-executor").Logger(),
	}
}

// RunReadOnly executes the batch in a read-only transaction.
func (e *Executor) RunReadOnly(ctx context.Context, statements []string) ([]models.StatementResult, error) {
	return e.run(ctx, statements, pgx.ReadOnly)
}

// RunReadWrite executes the batch in a read-write transaction.
func (e *Executor) RunReadWrite(ctx context.Context, statements []string) ([]models.StatementResult, error) {
	return e.run(ctx, statements, pgx.ReadWrite)
}

// Close releases the pool.
func (e *Executor) Close() {
	e.pool.Close()
}

func (e *Executor) run(ctx context.Context, statements []string, mode pgx.TxAccessMode) ([]models.StatementResult, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: mode})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "failed to begin transaction")
	}
	// Rollback is a no-op once the transaction committed.
	defer func() { _ = tx.Rollback(ctx) }()

	results := make([]models.StatementResult, 0, len(statements))
	for i, stmt := range statements {
		result, err := runStatement(ctx, tx, stmt)
		if err != nil {
			e.logger.Debug().Err(err).Int("statement", i).Msg("Statement failed, rolling back batch")
			return nil, errors.Wrapf(err, errors.CodeExecutionFailed,
				"statement %d failed", i+1).
				WithDetail(errors.DetailStatementIndex, i)
		}
		results = append(results, result)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to commit transaction")
	}

	return results, nil
}

// runStatement executes one statement and collects its rows. Column order
// follows the database's field order.
func runStatement(ctx context.Context, tx pgx.Tx, stmt string) (models.StatementResult, error) {
	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return models.StatementResult{}, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var collected [][]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return models.StatementResult{}, err
		}
		collected = append(collected, values)
	}
	if err := rows.Err(); err != nil {
		return models.StatementResult{}, err
	}

	tag := rows.CommandTag()
	return models.StatementResult{
		Columns:      columns,
		Rows:         collected,
		RowsAffected: tag.RowsAffected(),
		Command:      tag.String(),
	}, nil
}
