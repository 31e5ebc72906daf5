package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

const defaultFetchTimeout = 10 * time.Second

// Engine runs analyses. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	provider metadata.Provider
	scoring  analyzer.ScoringConfig
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
	analyze  func(analyzer.Input) *analyzer.Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithScoring overrides the scorer settings.
func WithScoring(s analyzer.ScoringConfig) Option {
	return func(e *Engine) { e.scoring = s }
}

// WithFetchTimeout bounds each metadata fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine reading index metadata from provider. A nil provider
// runs every analysis in degraded mode.
func New(provider metadata.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		scoring:  analyzer.DefaultScoring(),
		timeout:  defaultFetchTimeout,
		now:      time.Now,
		newID:    uuid.NewString,
		analyze:  analyzer.Analyze,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the per-request state.
type run struct {
	resp  *Response
	start time.Time
}

func (r *run) enter(s Stage) {
	r.resp.Metadata.Stage = s
	slog.Debug("analysis stage", "analysis_id", r.resp.Metadata.AnalysisID, "stage", s)
}

func (r *run) warn(msg string) {
	r.resp.Metadata.Warnings = append(r.resp.Metadata.Warnings, msg)
}

func (r *run) fail(err *AnalysisError) *Response {
	slog.Debug("analysis failed",
		"analysis_id", r.resp.Metadata.AnalysisID,
		"stage", r.resp.Metadata.Stage,
		"code", err.Code)
	r.resp.Success = false
	r.resp.Data = nil
	r.resp.Error = err
	r.resp.Metadata.Stage = StageFailed
	return r.resp
}

// Analyze runs one request to completion. It never returns an error: every
// failure is reported in the response.
func (e *Engine) Analyze(ctx context.Context, req Request) (resp *Response) {
	r := &run{start: e.now()}
	r.resp = &Response{Metadata: Metadata{
		AnalysisID:    e.newID(),
		Timestamp:     r.start.UTC(),
		ParserVersion: ParserVersion,
	}}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("analysis panicked", "analysis_id", r.resp.Metadata.AnalysisID, "panic", rec)
			resp = r.fail(newError(CodeInternalError, "%v", rec))
		}
		resp.Metadata.ExecutionTimeMs = e.now().Sub(r.start).Milliseconds()
	}()

	r.enter(StageValidating)
	if strings.TrimSpace(req.SQL) == "" {
		return r.fail(newError(CodeInvalidSQL, "SQL text is empty"))
	}
	if strings.TrimSpace(req.ConnectionID) == "" {
		return r.fail(newError(CodeInvalidSQL, "connection id is required"))
	}

	r.enter(StageParsing)
	parsed, err := sqlparse.Parse(req.SQL)
	if err != nil {
		return r.fail(classifyParseError(err))
	}
	if parsed.Unresolved > 0 {
		r.warn(fmt.Sprintf("%d column reference(s) could not be attributed to a table", parsed.Unresolved))
	}

	r.enter(StageMetadataFetch)
	indexes, stats, available := e.fetchMetadata(ctx, r, req, parsed)

	r.enter(StageAnalyzing)
	schema := req.Options.TargetSchema
	if schema == "" {
		schema = req.Owner
	}
	result := e.analyze(analyzer.Input{
		Parsed:            parsed,
		Indexes:           indexes,
		Stats:             stats,
		MetadataAvailable: available,
		Scoring:           e.scoring,
		TargetSchema:      schema,
	})

	data := &Data{
		Diagram: result.Diagram,
		Analysis: Analysis{
			StatementType:     parsed.StatementType,
			Tables:            nonNil(parsed.Tables),
			Joins:             nonNil(parsed.Joins),
			Columns:           nonNil(result.Columns),
			AccessOrder:       nonNil(result.AccessOrder),
			IndexPoints:       result.Points,
			UnresolvedColumns: parsed.Unresolved,
		},
		Recommendations: []analyzer.Recommendation{},
		Summary:         result.Summary,
	}
	if req.Options.recommendations() {
		data.Recommendations = result.Recommendations
	}
	if req.Options.IncludeHints {
		data.Hints = result.Hints
	}

	r.resp.Success = true
	r.resp.Data = data
	r.enter(StageSucceeded)
	return r.resp
}

// fetchMetadata reads indexes, and statistics when requested, for the
// parsed tables. Index failures degrade the run; statistics failures only
// warn.
func (e *Engine) fetchMetadata(ctx context.Context, r *run, req Request, parsed *sqlparse.ParsedSQL) (metadata.IndexMap, metadata.StatsMap, bool) {
	if e.provider == nil {
		r.resp.Metadata.Degraded = true
		r.warn("no index metadata provider configured; index coverage is unknown")
		return metadata.NewIndexMap(), nil, false
	}

	groups := tablesBySchema(parsed, req.Owner)
	indexes := metadata.NewIndexMap()
	for _, g := range groups {
		got, err := bounded(ctx, e.timeout, func(ctx context.Context) (metadata.IndexMap, error) {
			return e.provider.IndexesForTables(ctx, req.ConnectionID, g.schema, g.tables)
		})
		if err != nil {
			slog.Warn("index metadata unavailable, continuing without it",
				"analysis_id", r.resp.Metadata.AnalysisID,
				"connection", req.ConnectionID,
				"error", err)
			r.resp.Metadata.Degraded = true
			r.warn("index metadata unavailable: " + err.Error())
			return metadata.NewIndexMap(), nil, false
		}
		for table, idx := range got {
			for _, i := range idx {
				indexes.Add(table, i)
			}
		}
	}

	if !req.Options.IncludeStatistics {
		return indexes, nil, true
	}
	sp, ok := e.provider.(metadata.StatsProvider)
	if !ok {
		r.warn("column statistics requested but the metadata provider cannot supply them")
		return indexes, nil, true
	}
	stats := metadata.NewStatsMap()
	for _, g := range groups {
		got, err := bounded(ctx, e.timeout, func(ctx context.Context) (metadata.StatsMap, error) {
			return sp.ColumnStatsForTables(ctx, req.ConnectionID, g.schema, g.tables)
		})
		if err != nil {
			if !errors.Is(err, metadata.ErrNoStats) {
				slog.Warn("column statistics unavailable",
					"analysis_id", r.resp.Metadata.AnalysisID,
					"error", err)
			}
			r.warn("column statistics unavailable: " + err.Error())
			return indexes, nil, true
		}
		for k, v := range got {
			stats[k] = v
		}
	}
	return indexes, stats, true
}

type schemaGroup struct {
	schema string
	tables []string
}

// tablesBySchema groups distinct table names by explicit schema, falling
// back to owner. Groups are sorted by schema for deterministic fetches.
func tablesBySchema(p *sqlparse.ParsedSQL, owner string) []schemaGroup {
	bySchema := make(map[string][]string)
	seen := make(map[string]bool)
	for _, t := range p.Tables {
		schema := t.Schema
		if schema == "" {
			schema = owner
		}
		key := strings.ToUpper(schema) + "." + strings.ToUpper(t.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		bySchema[schema] = append(bySchema[schema], t.Name)
	}
	groups := make([]schemaGroup, 0, len(bySchema))
	for schema, tables := range bySchema {
		groups = append(groups, schemaGroup{schema: schema, tables: tables})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].schema < groups[j].schema })
	return groups
}

// bounded runs fetch under timeout and returns as soon as the deadline
// passes, even if fetch ignores its context. Provider panics become errors.
func bounded[T any](ctx context.Context, timeout time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- result{err: fmt.Errorf("metadata provider panicked: %v", rec)}
			}
		}()
		v, err := fetch(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case res := <-ch:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("metadata fetch: %w", ctx.Err())
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
