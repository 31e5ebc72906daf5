package sqlparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmpty indicates the SQL text is empty after stripping comments.
	ErrEmpty = errors.New("empty SQL text")
	// ErrProcedural indicates a PL/SQL block or stored-program definition.
	ErrProcedural = errors.New("procedural block")
	// ErrInsertValues indicates an INSERT with no SELECT to analyze.
	ErrInsertValues = errors.New("INSERT without SELECT")
	// ErrMissingWhere indicates an UPDATE or DELETE with no WHERE clause.
	ErrMissingWhere = errors.New("UPDATE/DELETE without WHERE")
	// ErrMultipleStatements indicates more than one statement in the text.
	ErrMultipleStatements = errors.New("multiple statements")
	// ErrUnsupported indicates any other statement kind.
	ErrUnsupported = errors.New("unsupported statement")
	// ErrNoTables indicates parsing finished without finding any table.
	ErrNoTables = errors.New("no tables found")
	// ErrInconsistent indicates the parsed model references unknown ids.
	ErrInconsistent = errors.New("inconsistent parse")
)

// SupportedShapes lists the statement shapes the parser accepts.
var SupportedShapes = []string{
	"SELECT (including WITH ... SELECT)",
	"UPDATE ... WHERE",
	"DELETE ... WHERE",
	"INSERT ... SELECT",
}

var (
	proceduralStartRe = regexp.MustCompile(`(?i)^(DECLARE|BEGIN)\b`)
	createProgramRe   = regexp.MustCompile(`(?i)^CREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:EDITIONABLE|NONEDITIONABLE)\s+)?(PROCEDURE|FUNCTION|PACKAGE|TRIGGER|TYPE)\b`)
)

// StripComments removes -- line comments and /* */ block comments that are
// outside string literals and quoted identifiers.
func StripComments(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql))

	inSingle, inDouble := false, false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inSingle:
			sb.WriteByte(ch)
			if ch == '\'' {
				inSingle = false
			}
		case inDouble:
			sb.WriteByte(ch)
			if ch == '"' {
				inDouble = false
			}
		case ch == '\'':
			inSingle = true
			sb.WriteByte(ch)
		case ch == '"':
			inDouble = true
			sb.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			if i < len(sql) {
				sb.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
			sb.WriteByte(' ')
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// StartsProgramUnit reports whether sql opens an anonymous PL/SQL block or a
// stored program unit. Such units contain semicolons and end at a "/" line.
func StartsProgramUnit(sql string) bool {
	stripped := strings.TrimSpace(StripComments(sql))
	return proceduralStartRe.MatchString(stripped) || createProgramRe.MatchString(stripped)
}

// Classify decides whether sql has a supported shape and returns its
// statement type. Rejections wrap one of the sentinel errors above.
func Classify(sql string) (StatementType, error) {
	stripped := strings.TrimSpace(StripComments(sql))
	if stripped == "" {
		return "", ErrEmpty
	}

	if m := proceduralStartRe.FindStringSubmatch(stripped); m != nil {
		return "", fmt.Errorf("%w: %s block", ErrProcedural, strings.ToUpper(m[1]))
	}
	if m := createProgramRe.FindStringSubmatch(stripped); m != nil {
		return "", fmt.Errorf("%w: CREATE %s", ErrProcedural, strings.ToUpper(m[1]))
	}

	tokens := statementTokens(Tokenize(stripped))
	if len(tokens) == 0 {
		return "", ErrEmpty
	}
	for _, tok := range tokens {
		if tok.Type == TOKEN_SEMICOLON {
			return "", ErrMultipleStatements
		}
	}

	first := firstMeaningful(tokens)
	switch first.Type {
	case TOKEN_SELECT, TOKEN_WITH:
		return StatementSelect, nil
	case TOKEN_INSERT:
		if !containsType(tokens, TOKEN_SELECT) {
			return "", ErrInsertValues
		}
		return StatementInsert, nil
	case TOKEN_UPDATE:
		if !containsTopLevel(tokens, TOKEN_WHERE) {
			return "", fmt.Errorf("%w: UPDATE", ErrMissingWhere)
		}
		return StatementUpdate, nil
	case TOKEN_DELETE:
		if !containsTopLevel(tokens, TOKEN_WHERE) {
			return "", fmt.Errorf("%w: DELETE", ErrMissingWhere)
		}
		return StatementDelete, nil
	}

	word := strings.ToUpper(first.Literal)
	if word == "" {
		word = first.Type.String()
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, word)
}

// IsSupported reports whether sql can be analyzed.
func IsSupported(sql string) bool {
	_, err := Classify(sql)
	return err == nil
}

// statementTokens drops EOF plus any trailing terminators (";" and the
// SQL*Plus "/" line).
func statementTokens(tokens []Token) []Token {
	end := len(tokens)
	for end > 0 {
		switch tokens[end-1].Type {
		case TOKEN_EOF, TOKEN_SEMICOLON, TOKEN_SLASH:
			end--
			continue
		}
		break
	}
	return tokens[:end]
}

// firstMeaningful skips leading parentheses so "(SELECT ...) UNION ..." is
// recognised as a query.
func firstMeaningful(tokens []Token) Token {
	for _, tok := range tokens {
		if tok.Type != TOKEN_LPAREN {
			return tok
		}
	}
	return Token{Type: TOKEN_EOF}
}

func containsType(tokens []Token, tt TokenType) bool {
	for _, tok := range tokens {
		if tok.Type == tt {
			return true
		}
	}
	return false
}

func containsTopLevel(tokens []Token, tt TokenType) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case tt:
			if depth == 0 {
				return true
			}
		}
	}
	return false
}
