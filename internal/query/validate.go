package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/feral-file/castindex/internal/domain"
)

var (
	// writeKeywords are rejected anywhere outside string literals
	writeKeywords = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|MERGE|UPSERT|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX|GRANT|REVOKE|COPY|CALL|EXECUTE|SET|LOCK)\b`)
	stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)
	lineComment   = regexp.MustCompile(`--[^\n]*`)
	blockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Sanitize strips code fences, a leading "sql" tag and a trailing semicolon from model output
func Sanitize(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = s[3:]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// Validate accepts a single SELECT (or WITH ... SELECT) statement and nothing else
func Validate(sql string) error {
	stripped := blockComment.ReplaceAllString(sql, " ")
	stripped = lineComment.ReplaceAllString(stripped, " ")
	stripped = stringLiteral.ReplaceAllString(stripped, "''")
	upper := strings.ToUpper(strings.TrimSpace(stripped))

	if upper == "" {
		return fmt.Errorf("%w: empty statement", domain.ErrReadOnlyQuery)
	}
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: only SELECT statements are allowed", domain.ErrReadOnlyQuery)
	}
	if strings.Contains(strings.TrimSuffix(upper, ";"), ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", domain.ErrReadOnlyQuery)
	}
	if kw := writeKeywords.FindString(upper); kw != "" {
		return fmt.Errorf("%w: disallowed keyword %s", domain.ErrReadOnlyQuery, kw)
	}
	return nil
}
