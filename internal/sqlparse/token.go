package sqlparse

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names follow SQL token conventions
const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	TOKEN_IDENT  // name or "quoted name"
	TOKEN_NUMBER // 123, 4.5, 1e10
	TOKEN_STRING // 'text', q'[text]'
	TOKEN_BIND   // :name, :1, ?

	TOKEN_EQ        // =
	TOKEN_NE        // <>, !=, ^=
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_DPIPE     // ||
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_OUTER     // (+)
	TOKEN_AT        // @

	keywordStart

	TOKEN_ALL
	TOKEN_AND
	TOKEN_APPLY
	TOKEN_AS
	TOKEN_ASC
	TOKEN_BETWEEN
	TOKEN_BY
	TOKEN_CASE
	TOKEN_CONNECT
	TOKEN_CROSS
	TOKEN_DELETE
	TOKEN_DESC
	TOKEN_DISTINCT
	TOKEN_ELSE
	TOKEN_END
	TOKEN_ESCAPE
	TOKEN_EXCEPT
	TOKEN_EXISTS
	TOKEN_FETCH
	TOKEN_FOR
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_IN
	TOKEN_INNER
	TOKEN_INSERT
	TOKEN_INTERSECT
	TOKEN_INTO
	TOKEN_IS
	TOKEN_JOIN
	TOKEN_LATERAL
	TOKEN_LEFT
	TOKEN_LIKE
	TOKEN_LIMIT
	TOKEN_MINUS_SET // MINUS (Oracle set operator)
	TOKEN_MODEL
	TOKEN_NATURAL
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER_KW
	TOKEN_PARTITION
	TOKEN_PIVOT
	TOKEN_PRIOR
	TOKEN_RETURNING
	TOKEN_RIGHT
	TOKEN_SAMPLE
	TOKEN_SELECT
	TOKEN_SET
	TOKEN_START
	TOKEN_THEN
	TOKEN_UNION
	TOKEN_UNPIVOT
	TOKEN_UPDATE
	TOKEN_USING
	TOKEN_VALUES
	TOKEN_WHEN
	TOKEN_WHERE
	TOKEN_WINDOW
	TOKEN_WITH

	keywordEnd
)

var keywords = map[string]TokenType{
	"ALL":       TOKEN_ALL,
	"AND":       TOKEN_AND,
	"APPLY":     TOKEN_APPLY,
	"AS":        TOKEN_AS,
	"ASC":       TOKEN_ASC,
	"BETWEEN":   TOKEN_BETWEEN,
	"BY":        TOKEN_BY,
	"CASE":      TOKEN_CASE,
	"CONNECT":   TOKEN_CONNECT,
	"CROSS":     TOKEN_CROSS,
	"DELETE":    TOKEN_DELETE,
	"DESC":      TOKEN_DESC,
	"DISTINCT":  TOKEN_DISTINCT,
	"ELSE":      TOKEN_ELSE,
	"END":       TOKEN_END,
	"ESCAPE":    TOKEN_ESCAPE,
	"EXCEPT":    TOKEN_EXCEPT,
	"EXISTS":    TOKEN_EXISTS,
	"FETCH":     TOKEN_FETCH,
	"FOR":       TOKEN_FOR,
	"FROM":      TOKEN_FROM,
	"FULL":      TOKEN_FULL,
	"GROUP":     TOKEN_GROUP,
	"HAVING":    TOKEN_HAVING,
	"IN":        TOKEN_IN,
	"INNER":     TOKEN_INNER,
	"INSERT":    TOKEN_INSERT,
	"INTERSECT": TOKEN_INTERSECT,
	"INTO":      TOKEN_INTO,
	"IS":        TOKEN_IS,
	"JOIN":      TOKEN_JOIN,
	"LATERAL":   TOKEN_LATERAL,
	"LEFT":      TOKEN_LEFT,
	"LIKE":      TOKEN_LIKE,
	"LIMIT":     TOKEN_LIMIT,
	"MINUS":     TOKEN_MINUS_SET,
	"MODEL":     TOKEN_MODEL,
	"NATURAL":   TOKEN_NATURAL,
	"NOT":       TOKEN_NOT,
	"NULL":      TOKEN_NULL,
	"OFFSET":    TOKEN_OFFSET,
	"ON":        TOKEN_ON,
	"OR":        TOKEN_OR,
	"ORDER":     TOKEN_ORDER,
	"OUTER":     TOKEN_OUTER_KW,
	"PARTITION": TOKEN_PARTITION,
	"PIVOT":     TOKEN_PIVOT,
	"PRIOR":     TOKEN_PRIOR,
	"RETURNING": TOKEN_RETURNING,
	"RIGHT":     TOKEN_RIGHT,
	"SAMPLE":    TOKEN_SAMPLE,
	"SELECT":    TOKEN_SELECT,
	"SET":       TOKEN_SET,
	"START":     TOKEN_START,
	"THEN":      TOKEN_THEN,
	"UNION":     TOKEN_UNION,
	"UNPIVOT":   TOKEN_UNPIVOT,
	"UPDATE":    TOKEN_UPDATE,
	"USING":     TOKEN_USING,
	"VALUES":    TOKEN_VALUES,
	"WHEN":      TOKEN_WHEN,
	"WHERE":     TOKEN_WHERE,
	"WINDOW":    TOKEN_WINDOW,
	"WITH":      TOKEN_WITH,
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_IDENT:     "IDENT",
	TOKEN_NUMBER:    "NUMBER",
	TOKEN_STRING:    "STRING",
	TOKEN_BIND:      "BIND",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "<>",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_DPIPE:     "||",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_OUTER:     "(+)",
	TOKEN_AT:        "@",
}

func init() {
	for word, tt := range keywords {
		tokenNames[tt] = word
	}
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// IsKeyword reports whether the token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// LookupIdent maps an identifier to its keyword token type, or TOKEN_IDENT.
func LookupIdent(ident string) TokenType {
	if tt, ok := keywords[strings.ToUpper(ident)]; ok {
		return tt
	}
	return TOKEN_IDENT
}

// Position is a location in the SQL text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Quoted  bool // double-quoted identifier
	Pos     Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}
