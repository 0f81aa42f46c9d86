package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-db/warden/pkg/errors"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single statement",
			input: "SELECT 1",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "trailing semicolon",
			input: "SELECT 1;",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "two statements",
			input: "SELECT 1; SELECT 2;",
			want:  []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:  "semicolon inside string literal",
			input: "SELECT 'a;b'; SELECT 2",
			want:  []string{"SELECT 'a;b'", "SELECT 2"},
		},
		{
			name:  "escaped quote in string",
			input: "SELECT 'it''s; fine'; SELECT 2",
			want:  []string{"SELECT 'it''s; fine'", "SELECT 2"},
		},
		{
			name:  "semicolon inside quoted identifier",
			input: `SELECT "col;umn" FROM t`,
			want:  []string{`SELECT "col;umn" FROM t`},
		},
		{
			name:  "semicolon inside line comment",
			input: "SELECT 1 -- trailing; not a split\n; SELECT 2",
			want:  []string{"SELECT 1 -- trailing; not a split", "SELECT 2"},
		},
		{
			name:  "semicolon inside block comment",
			input: "SELECT 1 /* a;b */; SELECT 2",
			want:  []string{"SELECT 1 /* a;b */", "SELECT 2"},
		},
		{
			name:  "nested block comment",
			input: "SELECT 1 /* outer /* inner; */ still; */; SELECT 2",
			want:  []string{"SELECT 1 /* outer /* inner; */ still; */", "SELECT 2"},
		},
		{
			name:  "dollar quoted function body",
			input: "CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END $$ LANGUAGE plpgsql; SELECT 1",
			want: []string{
				"CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END $$ LANGUAGE plpgsql",
				"SELECT 1",
			},
		},
		{
			name:  "tagged dollar quote",
			input: "DO $body$ BEGIN PERFORM 1; END $body$; SELECT 2",
			want:  []string{"DO $body$ BEGIN PERFORM 1; END $body$", "SELECT 2"},
		},
		{
			name:  "dollar sign that is not a quote",
			input: "SELECT $1; SELECT $2",
			want:  []string{"SELECT $1", "SELECT $2"},
		},
		{
			name:  "empty statements dropped",
			input: ";;  ;SELECT 1;;",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "whitespace only",
			input: "   \n\t  ",
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitStatements(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitStatementsSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		position int
	}{
		{"unterminated string", "SELECT 'abc", 7},
		{"unterminated quoted identifier", `SELECT "abc`, 7},
		{"unterminated block comment", "SELECT 1 /* nope", 9},
		{"unterminated nested block comment", "SELECT 1 /* a /* b */", 9},
		{"unterminated dollar quote", "DO $$ BEGIN END", 3},
		{"unterminated tagged dollar quote", "DO $tag$ BEGIN END", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitStatements(tt.input)
			require.Error(t, err)
			assert.Equal(t, errors.CodeSyntaxError, errors.GetCode(err))

			var gateErr *errors.Error
			require.ErrorAs(t, err, &gateErr)
			assert.Equal(t, tt.position, gateErr.Details[errors.DetailPosition])
		})
	}
}
