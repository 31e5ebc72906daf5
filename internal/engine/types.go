package engine

import (
	"time"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// ParserVersion is reported in every response.
const ParserVersion = "1.0.0"

// Stage is the last state an analysis reached.
type Stage string

const (
	StageValidating    Stage = "VALIDATING"
	StageParsing       Stage = "PARSING"
	StageMetadataFetch Stage = "METADATA_FETCH"
	StageAnalyzing     Stage = "ANALYZING"
	StageSucceeded     Stage = "SUCCEEDED"
	StageFailed        Stage = "FAILED"
)

// Options toggles optional parts of the response.
type Options struct {
	IncludeStatistics bool `json:"includeStatistics,omitempty"`
	// IncludeRecommendations defaults to true when nil.
	IncludeRecommendations *bool  `json:"includeRecommendations,omitempty"`
	IncludeHints           bool   `json:"includeHints,omitempty"`
	TargetSchema           string `json:"targetSchema,omitempty"`
}

func (o Options) recommendations() bool {
	return o.IncludeRecommendations == nil || *o.IncludeRecommendations
}

// Request is one analysis invocation.
type Request struct {
	SQL          string `json:"sql"`
	ConnectionID string `json:"connectionId"`
	// Owner is the schema unqualified tables are looked up in.
	Owner   string  `json:"owner,omitempty"`
	Options Options `json:"options,omitempty"`
}

// Response is the outcome of one analysis. Exactly one of Data and Error is
// set.
type Response struct {
	Success  bool           `json:"success"`
	Data     *Data          `json:"data,omitempty"`
	Error    *AnalysisError `json:"error,omitempty"`
	Metadata Metadata       `json:"metadata"`
}

// Data is the payload of a successful analysis.
type Data struct {
	Diagram         analyzer.Diagram          `json:"diagram"`
	Analysis        Analysis                  `json:"analysis"`
	Recommendations []analyzer.Recommendation `json:"recommendations"`
	Summary         analyzer.Summary          `json:"summary"`
	Hints           string                    `json:"hints,omitempty"`
}

// Analysis carries the structural model and per-column verdicts.
type Analysis struct {
	StatementType     sqlparse.StatementType    `json:"statementType"`
	Tables            []sqlparse.Table          `json:"tables"`
	Joins             []sqlparse.Join           `json:"joins"`
	Columns           []analyzer.ColumnAnalysis `json:"columns"`
	AccessOrder       []string                  `json:"accessOrder"`
	IndexPoints       []analyzer.IndexPoint     `json:"indexPoints"`
	UnresolvedColumns int                       `json:"unresolvedColumns"`
}

// Metadata describes the run itself.
type Metadata struct {
	AnalysisID      string    `json:"analysisId"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	Timestamp       time.Time `json:"timestamp"`
	ParserVersion   string    `json:"parserVersion"`
	Stage           Stage     `json:"stage"`
	// Degraded is set when index metadata could not be fetched.
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}
