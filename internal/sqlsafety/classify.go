// Package sqlsafety decides whether a SQL statement may run against a site
// database and in which category. The checks are lexical (comment stripping,
// keyword inspection); this is not a SQL parser and does not claim to stop
// injection vectors it does not enumerate.
package sqlsafety

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Category is the class a statement falls into.
type Category string

const (
	CategoryReadOnly    Category = "READ_ONLY"
	CategoryWrite       Category = "WRITE"
	CategoryUnsupported Category = "UNSUPPORTED"
)

// Rejection reasons. Result.Err wraps exactly one of these.
var (
	ErrEmptyStatement       = errors.New("empty SQL statement")
	ErrMultipleStatements   = errors.New("multiple statements are not allowed")
	ErrUnsupportedStatement = errors.New("unsupported statement")
	ErrMissingWhereParams   = errors.New("UPDATE and DELETE require bound parameters for their WHERE clause")
	ErrSubqueryBlocked      = errors.New("write statements may not contain SELECT")
)

// Result is the outcome of Classify.
type Result struct {
	Allowed  bool     `json:"allowed"`
	Category Category `json:"category"`
	// Keyword is the lower-cased leading keyword, empty when none was found.
	Keyword string `json:"keyword,omitempty"`
	// Err is nil when Allowed.
	Err error `json:"-"`
}

// Reason returns the rejection message, or "" for allowed statements.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

var (
	sqlBlockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	sqlLineComment  = regexp.MustCompile(`--[^\n]*`)
	selectWordRe    = regexp.MustCompile(`(?i)\bselect\b`)
)

var readKeywords = map[string]bool{
	"select":   true,
	"show":     true,
	"describe": true,
	"desc":     true,
	"explain":  true,
}

var writeKeywords = map[string]bool{
	"insert": true,
	"update": true,
	"delete": true,
}

// Classify inspects sql and reports whether it may execute. params are the
// values the caller will bind; writeAllowed enables INSERT/UPDATE/DELETE.
// Classify has no side effects and is safe for concurrent use.
func Classify(sql string, params []any, writeAllowed bool) Result {
	if strings.TrimSpace(sql) == "" {
		return reject(CategoryUnsupported, "", ErrEmptyStatement)
	}

	// Split the raw text: comment markers inside string literals must not
	// hide a stacked statement.
	if n := countStatements(sql); n > 1 {
		return reject(CategoryUnsupported, "", fmt.Errorf("%w: found %d", ErrMultipleStatements, n))
	}
	stripped := StripComments(sql)
	if strings.TrimSpace(stripped) == "" {
		return reject(CategoryUnsupported, "", fmt.Errorf("%w: only comments", ErrEmptyStatement))
	}

	kw := leadingKeyword(stripped)
	switch {
	case readKeywords[kw]:
		return Result{Allowed: true, Category: CategoryReadOnly, Keyword: kw}

	case writeKeywords[kw]:
		if !writeAllowed {
			return reject(CategoryWrite, kw, fmt.Errorf("%w: %s (write mode is disabled)", ErrUnsupportedStatement, strings.ToUpper(kw)))
		}
		if (kw == "update" || kw == "delete") && len(params) == 0 {
			return reject(CategoryWrite, kw, ErrMissingWhereParams)
		}
		if selectWordRe.MatchString(stripped) {
			return reject(CategoryWrite, kw, ErrSubqueryBlocked)
		}
		return Result{Allowed: true, Category: CategoryWrite, Keyword: kw}
	}

	if kw == "" {
		return reject(CategoryUnsupported, kw, fmt.Errorf("%w: no leading keyword", ErrUnsupportedStatement))
	}
	return reject(CategoryUnsupported, kw, fmt.Errorf("%w: %s", ErrUnsupportedStatement, strings.ToUpper(kw)))
}

func reject(c Category, kw string, err error) Result {
	return Result{Allowed: false, Category: c, Keyword: kw, Err: err}
}

// StripComments removes /* */ block comments and -- line comments.
// Block comments go first so a "--" inside one cannot swallow the rest of
// the line.
func StripComments(sql string) string {
	out := sqlBlockComment.ReplaceAllString(sql, " ")
	return sqlLineComment.ReplaceAllString(out, " ")
}

// countStatements splits on ';' and counts non-empty segments after dropping
// a single trailing empty one.
func countStatements(sql string) int {
	parts := strings.Split(sql, ";")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// leadingKeyword returns the first whitespace-delimited token, lower-cased.
// The token ends early only at characters MySQL itself treats as a token
// boundary, so "SELECT*FROM t" yields "select" but "select1" and
// "delete_x" stay whole.
func leadingKeyword(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	tok := strings.ToLower(fields[0])
	if i := strings.IndexFunc(tok, isTokenBoundary); i >= 0 {
		tok = tok[:i]
	}
	return tok
}

func isTokenBoundary(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '$':
		return false
	case r > 0x7f:
		// MySQL allows non-ASCII letters in unquoted identifiers.
		return false
	}
	return true
}
