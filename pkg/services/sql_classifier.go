package services

import (
	"regexp"
	"strings"

	"github.com/warden-db/warden/pkg/models"
)

// SQLClassifier assigns a risk level to individual SQL statements by
// leading keyword. Classification is static and fail-closed: anything the
// table does not recognize is treated as high risk.
type SQLClassifier struct {
	rules []sqlRule
}

type sqlRule struct {
	pattern  *regexp.Regexp
	risk     models.RiskLevel
	mutating bool
}

// NewSQLClassifier creates a classifier with the built-in rule table.
func NewSQLClassifier() *SQLClassifier {
	return &SQLClassifier{
		// First match wins, so the narrow rules come first.
		rules: []sqlRule{
			// Whole-database and whole-schema destruction.
			{regexp.MustCompile(`(?is)^DROP\s+DATABASE\b`), models.RiskExtreme, true},
			{regexp.MustCompile(`(?is)^DROP\s+SCHEMA\b.*\bCASCADE\b`), models.RiskExtreme, true},

			// Reads.
			{regexp.MustCompile(`(?is)^SELECT\b`), models.RiskLow, false},
			{regexp.MustCompile(`(?is)^EXPLAIN\b`), models.RiskLow, false},
			{regexp.MustCompile(`(?is)^SHOW\b`), models.RiskLow, false},
			{regexp.MustCompile(`(?is)^TABLE\b`), models.RiskLow, false},
			{regexp.MustCompile(`(?is)^VALUES\b`), models.RiskLow, false},

			// CTEs: data-modifying bodies write, plain ones read.
			{regexp.MustCompile(`(?is)^WITH\b.*\b(INSERT|UPDATE|DELETE|MERGE)\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^WITH\b`), models.RiskLow, false},

			// Row-level writes.
			{regexp.MustCompile(`(?is)^INSERT\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^UPDATE\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^DELETE\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^MERGE\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^CALL\b`), models.RiskMedium, true},
			{regexp.MustCompile(`(?is)^COPY\b`), models.RiskMedium, true},

			// Schema changes and privilege changes.
			{regexp.MustCompile(`(?is)^CREATE\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^ALTER\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^DROP\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^TRUNCATE\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^GRANT\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^REVOKE\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^COMMENT\s+ON\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^REINDEX\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^VACUUM\b`), models.RiskHigh, true},
			{regexp.MustCompile(`(?is)^SECURITY\s+LABEL\b`), models.RiskHigh, true},

			// Session/settings statements stay medium: reversible,
			// no persistent data change, but not read-only.
			{regexp.MustCompile(`(?is)^SET\b`), models.RiskMedium, false},
			{regexp.MustCompile(`(?is)^RESET\b`), models.RiskMedium, false},
		},
	}
}

// Classify assigns a risk level to a single statement. Statements that
// start with comments are classified by their first real keyword. Unknown
// statements default to high risk with mutation assumed.
func (c *SQLClassifier) Classify(statement string) models.ClassifiedStatement {
	normalized := stripLeadingTrivia(statement)

	for _, rule := range c.rules {
		if rule.pattern.MatchString(normalized) {
			return models.ClassifiedStatement{
				Text:     statement,
				Risk:     rule.risk,
				Mutating: rule.mutating,
			}
		}
	}

	return models.ClassifiedStatement{
		Text:     statement,
		Risk:     models.RiskHigh,
		Mutating: true,
	}
}

// ClassifyBatch classifies every statement and aggregates batch risk as the
// maximum per-statement risk.
func (c *SQLClassifier) ClassifyBatch(original string, statements []string) *models.QueryValidation {
	validation := &models.QueryValidation{
		Original:    original,
		Statements:  make([]models.ClassifiedStatement, 0, len(statements)),
		HighestRisk: models.RiskLow,
	}
	for _, stmt := range statements {
		classified := c.Classify(stmt)
		validation.Statements = append(validation.Statements, classified)
		validation.HighestRisk = models.MaxRisk(validation.HighestRisk, classified.Risk)
	}
	return validation
}

var (
	lineCommentRe  = regexp.MustCompile(`^\s*--[^\n]*\n?`)
	blockCommentRe = regexp.MustCompile(`(?s)^\s*/\*.*?\*/`)
)

// stripLeadingTrivia removes leading whitespace and comments so the rule
// table sees the first real keyword.
func stripLeadingTrivia(stmt string) string {
	for {
		trimmed := strings.TrimSpace(stmt)
		if loc := lineCommentRe.FindStringIndex(trimmed); loc != nil {
			stmt = trimmed[loc[1]:]
			continue
		}
		if loc := blockCommentRe.FindStringIndex(trimmed); loc != nil {
			stmt = trimmed[loc[1]:]
			continue
		}
		return trimmed
	}
}
