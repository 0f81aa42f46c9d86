package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
	"github.com/warden-db/warden/pkg/repositories"
)

// queryManager implements QueryManager. The pipeline for a batch is
// split -> classify -> gate -> execute -> record.
type queryManager struct {
	executor   repositories.SQLExecutor
	migrations repositories.MigrationLedger
	classifier *SQLClassifier
	gate       AuthorizationGate
	logger     Logger
	metrics    MetricsCollector

	now func() time.Time
}

// NewQueryManager creates a query manager.
func NewQueryManager(
	executor repositories.SQLExecutor,
	migrations repositories.MigrationLedger,
	classifier *SQLClassifier,
	gate AuthorizationGate,
	logger Logger,
	metrics MetricsCollector,
) QueryManager {
	return &queryManager{
		executor:   executor,
		migrations: migrations,
		classifier: classifier,
		gate:       gate,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (m *queryManager) HandleQuery(ctx context.Context, rawSQL, confirmationID, migrationName string) (*models.QueryResult, error) {
	timer := m.metrics.StartTimer("query_duration_seconds")
	defer timer.Stop()

	validation, err := m.validate(rawSQL)
	if err != nil {
		m.metrics.IncrementCounter("queries_total", "status", "invalid")
		return nil, err
	}

	descriptor := models.OperationDescriptor{
		Client: models.ClientDatabase,
		Target: strings.Join(validation.StatementTexts(), ";\n"),
		Risk:   validation.HighestRisk,
	}

	decision := m.gate.Authorize(descriptor, confirmationID)
	switch decision.Kind {
	case models.DecisionDeny:
		m.metrics.IncrementCounter("queries_total", "status", "denied")
		return nil, errors.OperationNotAllowed(validation.HighestRisk.String(), decision.Reason)
	case models.DecisionNeedsConfirmation:
		m.metrics.IncrementCounter("queries_total", "status", "needs_confirmation")
		return nil, errors.ConfirmationRequired(
			decision.ConfirmationID, validation.HighestRisk.String(), decision.Reason)
	}

	readOnly := validation.HighestRisk == models.RiskLow

	var results []models.StatementResult
	if readOnly {
		results, err = m.executor.RunReadOnly(ctx, validation.StatementTexts())
	} else {
		results, err = m.executor.RunReadWrite(ctx, validation.StatementTexts())
	}
	if err != nil {
		m.metrics.IncrementCounter("queries_total", "status", "failed")
		return nil, err
	}

	if validation.HighestRisk >= models.RiskMedium && validation.HasMutation() {
		m.recordMigration(ctx, validation, migrationName)
	}

	m.metrics.IncrementCounter("queries_total", "status", "success")
	m.metrics.RecordHistogram("query_statements", float64(len(validation.Statements)))

	return &models.QueryResult{
		Statements: results,
		RiskLevel:  validation.HighestRisk.String(),
		ReadOnly:   readOnly,
	}, nil
}

func (m *queryManager) ListMigrations(ctx context.Context, opts models.MigrationListOptions) ([]models.MigrationRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return m.migrations.List(ctx, opts)
}

// validate splits and classifies the raw query. Statements that hold only
// comments are dropped; a batch with nothing left is an empty query.
func (m *queryManager) validate(rawSQL string) (*models.QueryValidation, error) {
	split, err := SplitStatements(rawSQL)
	if err != nil {
		return nil, err
	}

	var statements []string
	for _, stmt := range split {
		if stripLeadingTrivia(stmt) != "" {
			statements = append(statements, stmt)
		}
	}
	if len(statements) == 0 {
		return nil, errors.New(errors.CodeEmptyQuery, "query contains no statements")
	}
	return m.classifier.ClassifyBatch(rawSQL, statements), nil
}

// recordMigration appends a migration record for a mutating batch. Failures
// are logged and swallowed: the batch already committed, and a ledger
// problem must not turn a successful query into an error.
func (m *queryManager) recordMigration(ctx context.Context, validation *models.QueryValidation, requestedName string) {
	record := models.MigrationRecord{
		Version:    m.now().UTC().Format("20060102150405"),
		Name:       m.migrationName(validation, requestedName),
		Statements: validation.StatementTexts(),
	}

	if err := m.migrations.Record(ctx, record); err != nil {
		m.metrics.IncrementCounter("migration_records_total", "status", "failed")
		m.logger.Warn("Failed to record migration",
			"version", record.Version,
			"name", record.Name,
			"error", err.Error())
		return
	}

	m.metrics.IncrementCounter("migration_records_total", "status", "recorded")
	m.logger.Info("Migration recorded",
		"version", record.Version,
		"name", record.Name)
}

func (m *queryManager) migrationName(validation *models.QueryValidation, requestedName string) string {
	if name := sanitizeMigrationName(requestedName); name != "" {
		return name
	}
	for _, stmt := range validation.Statements {
		if !stmt.Mutating {
			continue
		}
		if name := describeStatement(stmt.Text); name != "" {
			return name
		}
	}
	return "migration_" + shortHash(validation.Original)
}

var (
	nameStripRe = regexp.MustCompile(`[^\w\s]`)
	nameSpaceRe = regexp.MustCompile(`\s+`)

	ddlNameRe = regexp.MustCompile(
		`(?is)^(CREATE|ALTER|DROP)\s+(?:OR\s+REPLACE\s+)?(?:UNIQUE\s+)?(?:MATERIALIZED\s+)?` +
			`(TABLE|INDEX|VIEW|FUNCTION|TRIGGER|SEQUENCE|TYPE|SCHEMA|EXTENSION|POLICY|ROLE)\s+` +
			`(?:CONCURRENTLY\s+)?(?:IF\s+(?:NOT\s+)?EXISTS\s+)?([\w".]+)`)
	dmlNameRe = regexp.MustCompile(
		`(?is)^(INSERT\s+INTO|UPDATE|DELETE\s+FROM|TRUNCATE(?:\s+TABLE)?)\s+([\w".]+)`)
)

// sanitizeMigrationName normalizes a client-supplied migration name:
// lowercase, punctuation stripped, spaces collapsed to underscores, at most
// 100 characters.
func sanitizeMigrationName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nameStripRe.ReplaceAllString(name, "")
	name = nameSpaceRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// describeStatement derives a verb_object style name from a mutating
// statement, or returns "" when no pattern applies.
func describeStatement(stmt string) string {
	normalized := stripLeadingTrivia(stmt)

	if m := ddlNameRe.FindStringSubmatch(normalized); m != nil {
		return sanitizeMigrationName(m[1] + " " + m[2] + " " + objectName(m[3]))
	}
	if m := dmlNameRe.FindStringSubmatch(normalized); m != nil {
		return sanitizeMigrationName(m[1] + " " + objectName(m[2]))
	}
	return ""
}

// objectName reduces a possibly schema-qualified, possibly quoted object
// reference to its final component.
func objectName(ref string) string {
	ref = strings.ReplaceAll(ref, `"`, "")
	if idx := strings.LastIndex(ref, "."); idx >= 0 {
		ref = ref[idx+1:]
	}
	return ref
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
