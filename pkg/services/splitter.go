package services

import (
	"strings"

	"github.com/warden-db/warden/pkg/errors"
)

// SplitStatements splits a raw SQL string into individual statements on
// semicolons, honoring single-quoted strings, double-quoted identifiers,
// dollar-quoted blocks, line comments, and block comments. Returned
// statements are trimmed; empty statements are dropped. Unterminated
// strings, dollar quotes, and block comments are syntax errors carrying the
// byte offset where the construct opened.
func SplitStatements(sql string) ([]string, error) {
	var (
		statements []string
		start      int // byte offset of the current statement
		i          int
		n          = len(sql)
	)

	flush := func(end int) {
		stmt := strings.TrimSpace(sql[start:end])
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	for i < n {
		c := sql[i]
		switch {
		case c == ';':
			flush(i)
			i++
			start = i

		case c == '\'':
			end, ok := scanQuoted(sql, i, '\'')
			if !ok {
				return nil, errors.SyntaxError(i, "unterminated string literal")
			}
			i = end

		case c == '"':
			end, ok := scanQuoted(sql, i, '"')
			if !ok {
				return nil, errors.SyntaxError(i, "unterminated quoted identifier")
			}
			i = end

		case c == '-' && i+1 < n && sql[i+1] == '-':
			// Line comment runs to end of line or end of input.
			nl := strings.IndexByte(sql[i:], '\n')
			if nl < 0 {
				i = n
			} else {
				i += nl + 1
			}

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end, ok := scanBlockComment(sql, i)
			if !ok {
				return nil, errors.SyntaxError(i, "unterminated block comment")
			}
			i = end

		case c == '$':
			tag, tagEnd := scanDollarTag(sql, i)
			if tagEnd < 0 {
				i++
				break
			}
			closing := strings.Index(sql[tagEnd:], tag)
			if closing < 0 {
				return nil, errors.SyntaxError(i, "unterminated dollar-quoted string")
			}
			i = tagEnd + closing + len(tag)

		default:
			i++
		}
	}

	flush(n)
	return statements, nil
}

// scanQuoted advances past a quoted region opened at sql[open]. The closing
// quote may be escaped by doubling. Returns the offset just past the close,
// or ok=false when the region never closes.
func scanQuoted(sql string, open int, quote byte) (int, bool) {
	i := open + 1
	n := len(sql)
	for i < n {
		if sql[i] != quote {
			i++
			continue
		}
		if i+1 < n && sql[i+1] == quote {
			i += 2
			continue
		}
		return i + 1, true
	}
	return 0, false
}

// scanBlockComment advances past a block comment opened at sql[open].
// Block comments nest.
func scanBlockComment(sql string, open int) (int, bool) {
	i := open + 2
	n := len(sql)
	depth := 1
	for i+1 < n {
		switch {
		case sql[i] == '/' && sql[i+1] == '*':
			depth++
			i += 2
		case sql[i] == '*' && sql[i+1] == '/':
			depth--
			i += 2
			if depth == 0 {
				return i, true
			}
		default:
			i++
		}
	}
	return 0, false
}

// scanDollarTag inspects a potential dollar-quote opener at sql[open]. On a
// match it returns the full tag (for example "$body$" or "$$") and the
// offset just past it; otherwise tagEnd is -1.
func scanDollarTag(sql string, open int) (string, int) {
	i := open + 1
	n := len(sql)
	for i < n {
		c := sql[i]
		if c == '$' {
			return sql[open : i+1], i + 1
		}
		if !isTagChar(c, i == open+1) {
			return "", -1
		}
		i++
	}
	return "", -1
}

func isTagChar(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && c >= '0' && c <= '9'
}
