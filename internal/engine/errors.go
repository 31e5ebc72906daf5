package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// ErrorCode classifies a failed analysis.
type ErrorCode string

const (
	CodeInvalidSQL        ErrorCode = "INVALID_SQL"
	CodeUnsupportedSyntax ErrorCode = "UNSUPPORTED_SYNTAX"
	CodeParseError        ErrorCode = "PARSE_ERROR"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError is the only error shape returned from the engine.
type AnalysisError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AnalysisError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code ErrorCode, format string, args ...any) *AnalysisError {
	return &AnalysisError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func supportedList() string {
	return "supported statements: " + strings.Join(sqlparse.SupportedShapes, ", ")
}

// classifyParseError maps parser sentinels to error codes.
func classifyParseError(err error) *AnalysisError {
	switch {
	case errors.Is(err, sqlparse.ErrEmpty):
		return newError(CodeInvalidSQL, "SQL text is empty")
	case errors.Is(err, sqlparse.ErrProcedural):
		return newError(CodeUnsupportedSyntax,
			"PL/SQL %s is not supported; extract the SELECT, UPDATE or DELETE statements and cursor queries inside it and analyze them one at a time (%s)",
			strings.TrimPrefix(err.Error(), sqlparse.ErrProcedural.Error()+": "), supportedList())
	case errors.Is(err, sqlparse.ErrInsertValues):
		return newError(CodeUnsupportedSyntax,
			"INSERT ... VALUES reads no tables and has nothing to index (%s)", supportedList())
	case errors.Is(err, sqlparse.ErrMissingWhere):
		return newError(CodeUnsupportedSyntax,
			"%s touches every row and cannot use an index (%s)", err.Error(), supportedList())
	case errors.Is(err, sqlparse.ErrMultipleStatements):
		return newError(CodeUnsupportedSyntax,
			"only one statement can be analyzed at a time (%s)", supportedList())
	case errors.Is(err, sqlparse.ErrUnsupported):
		return newError(CodeUnsupportedSyntax, "%s (%s)", err.Error(), supportedList())
	case errors.Is(err, sqlparse.ErrNoTables):
		return newError(CodeParseError, "no tables found in statement")
	case errors.Is(err, sqlparse.ErrInconsistent):
		return newError(CodeParseError, "%s", err.Error())
	}
	return newError(CodeParseError, "%s", err.Error())
}
