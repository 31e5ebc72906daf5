package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/baseline"
	"github.com/ppiankov/oraspectre/internal/engine"
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/reporter"
)

const (
	defaultConnection   = "default"
	indexFileConnection = "index-file"
	// offlineConnection is used when nothing is configured; the engine then
	// runs without metadata and marks every response degraded.
	offlineConnection = "offline"
)

// analysisFlags are shared by analyze and batch.
type analysisFlags struct {
	connection     string
	owner          string
	targetSchema   string
	indexFile      string
	hints          bool
	statistics     bool
	noRecs         bool
	format         string
	failOn         string
	minPriority    string
	pointTypes     string
	baselinePath   string
	updateBaseline string
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.connection, "connection", "", "configured connection id (default: the only configured one)")
	fl.StringVar(&f.owner, "owner", "", "schema for unqualified table names")
	fl.StringVar(&f.targetSchema, "target-schema", "", "schema written into generated DDL (default: --owner)")
	fl.StringVar(&f.indexFile, "index-file", "", "YAML snapshot of existing indexes, used instead of a live database")
	fl.BoolVar(&f.hints, "hints", false, "include an Oracle optimizer hint string")
	fl.BoolVar(&f.statistics, "statistics", false, "read column statistics to refine candidacy scores")
	fl.BoolVar(&f.noRecs, "no-recommendations", false, "omit CREATE INDEX recommendations")
	fl.StringVar(&f.format, "format", "text", "output format: text, json, sarif, mermaid, or spectrehub")
	fl.StringVar(&f.failOn, "fail-on", "", "exit 2 if recommendations match (comma-separated priorities or point types: critical,JOIN)")
	fl.StringVar(&f.minPriority, "min-priority", "", "only report recommendations at or above this priority")
	fl.StringVar(&f.pointTypes, "type", "", "only report recommendations of these point types (comma-separated)")
	fl.StringVar(&f.baselinePath, "baseline", "", "path to baseline file (suppress known recommendations)")
	fl.StringVar(&f.updateBaseline, "update-baseline", "", "save current recommendations as new baseline")
}

// outputFormat resolves --format against the configured default.
func (f *analysisFlags) outputFormat(cmd *cobra.Command) (reporter.Format, error) {
	format := f.format
	if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
		format = cfg.Defaults.Format
	}
	return reporter.ParseFormat(format)
}

// session is an engine bound to the selected metadata connection.
type session struct {
	engine       *engine.Engine
	registry     *metadata.Registry
	connectionID string
	url          string
}

func openSession(f *analysisFlags) (*session, error) {
	conns := cfg.MetadataConnections()
	connID := f.connection

	if f.indexFile != "" {
		if _, err := os.Stat(f.indexFile); err != nil {
			return nil, fmt.Errorf("index file: %w", err)
		}
		conns = append(conns, metadata.Connection{ID: indexFileConnection, Driver: metadata.DriverFile, Path: f.indexFile})
		if connID == "" {
			connID = indexFileConnection
		}
	}

	if connID == "" {
		switch len(conns) {
		case 0:
			connID = offlineConnection
		case 1:
			connID = conns[0].ID
		default:
			if hasConnection(conns, defaultConnection) {
				connID = defaultConnection
			} else {
				return nil, fmt.Errorf("%d connections configured, pick one with --connection", len(conns))
			}
		}
	}

	s := &session{connectionID: connID}
	var provider metadata.Provider
	if len(conns) > 0 {
		s.registry = metadata.NewRegistry(conns, nil)
		if !s.registry.Has(connID) {
			return nil, fmt.Errorf("%w: %s (configured: %s)", metadata.ErrUnknownConnection, connID, strings.Join(s.registry.IDs(), ", "))
		}
		provider = s.registry
		for _, c := range conns {
			if c.ID == connID {
				s.url = c.URL
			}
		}
	} else {
		if f.connection != "" {
			return nil, fmt.Errorf("%w: %s (none configured)", metadata.ErrUnknownConnection, f.connection)
		}
		slog.Warn("no metadata connection configured, index coverage will be unknown")
	}

	s.engine = engine.New(provider,
		engine.WithScoring(cfg.ScoringConfig()),
		engine.WithFetchTimeout(cfg.TimeoutDuration()))
	return s, nil
}

func hasConnection(conns []metadata.Connection, id string) bool {
	for _, c := range conns {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *session) Close() {
	if s.registry == nil {
		return
	}
	if err := s.registry.Close(); err != nil {
		slog.Warn("close metadata connections", "error", err)
	}
}

func (s *session) request(f *analysisFlags, sql string) engine.Request {
	include := !f.noRecs
	return engine.Request{
		SQL:          sql,
		ConnectionID: s.connectionID,
		Owner:        f.owner,
		Options: engine.Options{
			IncludeStatistics:      f.statistics,
			IncludeRecommendations: &include,
			IncludeHints:           f.hints,
			TargetSchema:           f.targetSchema,
		},
	}
}

// finish filters recommendations, writes the report and maps the outcome
// to an exit code.
func (s *session) finish(cmd *cobra.Command, f *analysisFlags, command string, info BuildInfo, entries []reporter.Entry, format reporter.Format, countFailures bool) error {
	if f.updateBaseline != "" {
		all := collectRecommendations(entries)
		if err := baseline.Save(f.updateBaseline, all); err != nil {
			return fmt.Errorf("save baseline: %w", err)
		}
		slog.Info("baseline saved", "path", f.updateBaseline, "recommendations", len(all))
	}

	suppressed, err := filterRecommendations(entries, f.baselinePath)
	if err != nil {
		return err
	}
	applyReportFilters(entries, f.minPriority, f.pointTypes)

	report := reporter.NewReport(command, info.Version, entries)
	if s.url != "" {
		report.Metadata.URIHash = reporter.HashURI(s.url)
	}
	report.Metadata.Connection = s.connectionID
	if suppressed > 0 {
		slog.Info("recommendations filtered", "total", report.Summary.Recommendations+suppressed, "suppressed", suppressed)
	}

	if err := reporter.Write(cmd.OutOrStdout(), &report, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if f.failOn != "" && shouldFailOn(collectRecommendations(entries), f.failOn) {
		return &ExitError{Code: exitFailOn}
	}
	if countFailures && report.Summary.Failed > 0 {
		return &ExitError{Code: exitAnalysisFailed}
	}
	if code := analyzer.ExitCode(report.MaxPriority); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func collectRecommendations(entries []reporter.Entry) []analyzer.Recommendation {
	var out []analyzer.Recommendation
	for _, e := range entries {
		if e.Response == nil || e.Response.Data == nil {
			continue
		}
		out = append(out, e.Response.Data.Recommendations...)
	}
	return out
}
