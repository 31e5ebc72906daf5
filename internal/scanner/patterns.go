package scanner

import (
	"regexp"
	"strings"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// sqlPlusCommands end at the line break instead of a semicolon.
var sqlPlusCommands = map[string]bool{
	"ACCEPT": true, "BREAK": true, "BTITLE": true, "CLEAR": true,
	"COL": true, "COLUMN": true, "COMPUTE": true, "CONN": true,
	"CONNECT": true, "DEF": true, "DEFINE": true, "DESC": true,
	"DESCRIBE": true, "EXEC": true, "EXECUTE": true, "EXIT": true,
	"HOST": true, "PAUSE": true, "PRINT": true, "PRO": true,
	"PROMPT": true, "QUIT": true, "REM": true, "REMARK": true,
	"SET": true, "SHO": true, "SHOW": true, "SPO": true,
	"SPOOL": true, "START": true, "TIMING": true, "TTITLE": true,
	"UNDEF": true, "UNDEFINE": true, "VAR": true, "VARIABLE": true,
	"WHENEVER": true,
}

// isSQLPlusCommand reports whether a trimmed script line is a client
// command rather than SQL.
func isSQLPlusCommand(trimmed string) bool {
	if strings.HasPrefix(trimmed, "@") {
		return true
	}
	word := trimmed
	if i := strings.IndexAny(word, " \t;"); i >= 0 {
		word = word[:i]
	}
	return sqlPlusCommands[strings.ToUpper(word)]
}

// analysable matches the statements the engine understands, plus PL/SQL
// blocks so their diagnostics reach the report.
var analysable = regexp.MustCompile(`(?is)^\(*\s*(SELECT|WITH|UPDATE|DELETE|INSERT|BEGIN|DECLARE)\b`)

// queryLike is narrower: string literals in code only count as SQL when
// they read like a DML statement.
var queryLike = regexp.MustCompile(`(?is)^\(*\s*(?:SELECT\s.+\sFROM\s|WITH\s+\w+\s+AS\s*\(|UPDATE\s+[\w.$#"]+\s+SET\s|DELETE\s+(?:FROM\s+)?[\w.$#"]+|INSERT\s+INTO\s.+\sSELECT\s)`)

// Single-line string literals in code.
var literalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`),
	regexp.MustCompile("`([^`]*)`"),
}

// isAnalysable reports whether a script statement should be analysed.
func isAnalysable(text string) bool {
	return analysable.MatchString(strings.TrimSpace(sqlparse.StripComments(text)))
}

// isQueryLike reports whether an embedded string reads like SQL.
func isQueryLike(text string) bool {
	return queryLike.MatchString(strings.TrimSpace(sqlparse.StripComments(text)))
}

// ScanLine extracts SQL statements from the single-line string literals of
// one line of code.
func ScanLine(line string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range literalPatterns {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ";"))
			if seen[text] || !isQueryLike(text) {
				continue
			}
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}
