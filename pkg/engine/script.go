package engine

import "strings"

// SplitStatements splits a SQL script on semicolons and drops statements
// that contain nothing but comments and whitespace. Schema files in the
// corpus never embed semicolons inside string literals, so a plain split is
// sufficient.
func SplitStatements(script string) []string {
	var stmts []string
	for _, raw := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" || commentOnly(stmt) {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

func commentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		return false
	}
	return true
}
