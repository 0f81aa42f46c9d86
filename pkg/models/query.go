package models

import "time"

// ClassifiedStatement is a single SQL statement with its assessed risk.
type ClassifiedStatement struct {
	Text     string
	Risk     RiskLevel
	Mutating bool
}

// QueryValidation is the result of splitting and classifying a raw query
// string. Statement order matches the original text.
type QueryValidation struct {
	Original    string
	Statements  []ClassifiedStatement
	HighestRisk RiskLevel
}

// StatementTexts returns the statement texts in order.
func (v *QueryValidation) StatementTexts() []string {
	texts := make([]string, len(v.Statements))
	for i, s := range v.Statements {
		texts[i] = s.Text
	}
	return texts
}

// HasMutation reports whether any statement in the batch writes.
func (v *QueryValidation) HasMutation() bool {
	for _, s := range v.Statements {
		if s.Mutating {
			return true
		}
	}
	return false
}

// MutatingTexts returns the texts of the mutating statements, in order.
func (v *QueryValidation) MutatingTexts() []string {
	var texts []string
	for _, s := range v.Statements {
		if s.Mutating {
			texts = append(texts, s.Text)
		}
	}
	return texts
}

// StatementResult holds the outcome of one executed statement. Columns
// preserve the order reported by the database.
type StatementResult struct {
	Columns      []string        `json:"columns"`
	Rows         [][]interface{} `json:"rows"`
	RowsAffected int64           `json:"rows_affected"`
	Command      string          `json:"command,omitempty"`
}

// QueryResult is the ordered per-statement outcome of an executed batch.
type QueryResult struct {
	Statements []StatementResult `json:"statements"`
	RiskLevel  string            `json:"risk_level"`
	ReadOnly   bool              `json:"read_only"`
}

// MigrationRecord describes a schema-changing batch recorded in the
// migration ledger.
type MigrationRecord struct {
	Version    string    `json:"version"`
	Name       string    `json:"name"`
	Statements []string  `json:"statements,omitempty"`
	AppliedAt  time.Time `json:"applied_at,omitempty"`
}

// MigrationListOptions controls migration ledger reads.
type MigrationListOptions struct {
	Limit             int
	Offset            int
	NamePattern       string
	IncludeStatements bool
}
