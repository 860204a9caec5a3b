package normalize

import (
	"regexp"
	"strings"
)

var sqlKeywords = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "ORDER BY",
	"GROUP BY", "HAVING", "INNER JOIN", "LEFT JOIN", "RIGHT JOIN",
	"OUTER JOIN", "JOIN", "ON", "AS", "DISTINCT", "INSERT INTO",
	"VALUES", "UPDATE", "SET", "DELETE", "CREATE TABLE", "ALTER TABLE",
	"DROP TABLE", "PRIMARY KEY", "FOREIGN KEY", "REFERENCES", "INDEX",
	"UNIQUE", "AUTO_INCREMENT", "DESC", "ASC", "LIMIT", "OFFSET",
	"LIKE", "IN", "BETWEEN", "IS NULL", "IS NOT NULL",
	"INT", "VARCHAR", "CHAR", "TEXT", "FLOAT", "DOUBLE", "DECIMAL",
	"DATE", "TIME", "TIMESTAMP", "BOOLEAN", "BIT", "BLOB", "ENUM",
}

var sqlKeywordPattern = func() *regexp.Regexp {
	quoted := make([]string, len(sqlKeywords))
	for i, k := range sqlKeywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// SQL uppercases keywords and removes whole-line "--" comments.
func SQL(src string) string {
	src = sqlKeywordPattern.ReplaceAllStringFunc(src, strings.ToUpper)

	var b strings.Builder
	b.Grow(len(src))
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
