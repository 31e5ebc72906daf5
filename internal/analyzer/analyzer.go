package analyzer

import (
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// Input is everything one analysis needs besides the SQL text.
type Input struct {
	Parsed  *sqlparse.ParsedSQL
	Indexes metadata.IndexMap
	// Stats is optional; nil means heuristic defaults.
	Stats             metadata.StatsMap
	MetadataAvailable bool
	Scoring           ScoringConfig
	TargetSchema      string
}

// Result is the full analysis of one statement.
type Result struct {
	Columns         []ColumnAnalysis
	AccessOrder     []string
	Points          []IndexPoint
	Diagram         Diagram
	Recommendations []Recommendation
	Summary         Summary
	Hints           string
}

// Analyze runs scorer, resolver, point identifier, diagram builder,
// recommendation generator, hint generator and health scorer in order.
func Analyze(in Input) *Result {
	var lookup func(table, column string) (*float64, *float64)
	if in.Stats != nil {
		lookup = func(table, column string) (*float64, *float64) {
			st, ok := in.Stats.Lookup(table, column)
			if !ok {
				return nil, nil
			}
			var sel, nulls *float64
			if v, ok := st.Selectivity(); ok {
				sel = &v
			}
			if v, ok := st.NullRatio(); ok {
				nulls = &v
			}
			return sel, nulls
		}
	}

	columns := AnalyzeColumns(in.Parsed, in.Scoring, lookup)
	path := AccessPath(in.Parsed, columns)
	order := make([]string, len(path))
	for i, s := range path {
		order[i] = s.TableID
	}
	points := IdentifyPoints(in.Parsed, columns, in.Indexes, order, in.MetadataAvailable)

	if points == nil {
		points = []IndexPoint{}
	}
	recs := Recommend(points, in.TargetSchema)
	if recs == nil {
		recs = []Recommendation{}
	}

	return &Result{
		Columns:         columns,
		AccessOrder:     order,
		Points:          points,
		Diagram:         BuildDiagram(in.Parsed, columns, in.Indexes, path, points),
		Recommendations: recs,
		Summary:         Summarize(in.Parsed, points, in.Scoring.CriticalPenalty),
		Hints:           Hints(order, in.Parsed),
	}
}
