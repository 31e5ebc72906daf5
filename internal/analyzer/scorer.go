package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// ScoringConfig holds the scorer's tunable constants.
type ScoringConfig struct {
	// DefaultSelectivity is assumed when no statistics are available.
	DefaultSelectivity float64
	// DefaultNullRatio is assumed when no statistics are available.
	DefaultNullRatio float64
	// MinCandidateScore is the lowest score that still makes a candidate.
	MinCandidateScore int
	// CriticalPenalty is subtracted from the health score per critical point.
	CriticalPenalty int
}

// DefaultScoring returns the built-in scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		DefaultSelectivity: 0.1,
		DefaultNullRatio:   0.05,
		MinCandidateScore:  30,
		CriticalPenalty:    15,
	}
}

// maxSelectivityForIndex excludes columns whose measured selectivity keeps
// more than half the rows.
const maxSelectivityForIndex = 0.5

// ScoreInput describes one column to score.
type ScoreInput struct {
	ConditionType sqlparse.ConditionType
	Operator      string
	// Value is the compared string literal, if any.
	Value string
	// Function is the wrapping function, if any.
	Function string
	// Selectivity and NullRatio are measured values; nil means unknown.
	Selectivity *float64
	NullRatio   *float64
}

// Score is the tagged result of scoring one column.
type Score struct {
	IsCandidate    bool
	Score          int
	Reasons        []string
	ExcludeReasons []string
	Grade          SelectivityGrade
	StatsSource    string
}

// verdict is the contribution of one rule.
type verdict struct {
	points  int
	reason  string
	exclude string
}

// rule is a pure sub-scorer. Rules are summed; any exclusion rejects.
type rule func(in ScoreInput, sel, nullRatio float64, measured bool) verdict

var rules = []rule{
	roleRule,
	negationRule,
	wildcardRule,
	nullCheckRule,
	functionRule,
	selectivityRule,
	nullRatioRule,
}

// ScoreColumn scores a column's worth-indexing likelihood. It never fails:
// missing statistics fall back to cfg defaults.
func ScoreColumn(in ScoreInput, cfg ScoringConfig) Score {
	sel, nullRatio := cfg.DefaultSelectivity, cfg.DefaultNullRatio
	measured := false
	if in.Selectivity != nil {
		sel = *in.Selectivity
		measured = true
	}
	if in.NullRatio != nil {
		nullRatio = *in.NullRatio
	}

	out := Score{
		Grade:       gradeSelectivity(sel),
		StatsSource: StatsSourceDefault,
	}
	if measured {
		out.StatsSource = StatsSourceStatistics
	}

	if in.ConditionType == sqlparse.ConditionNone || in.ConditionType == "" {
		out.ExcludeReasons = []string{"column does not participate in a predicate, join or sort"}
		return out
	}

	for _, r := range rules {
		v := r(in, sel, nullRatio, measured)
		out.Score += v.points
		if v.reason != "" {
			out.Reasons = append(out.Reasons, v.reason)
		}
		if v.exclude != "" {
			out.ExcludeReasons = append(out.ExcludeReasons, v.exclude)
		}
	}
	if out.Score < 0 {
		out.Score = 0
	}

	if len(out.ExcludeReasons) == 0 && out.Score < cfg.MinCandidateScore {
		out.ExcludeReasons = append(out.ExcludeReasons,
			fmt.Sprintf("score %d is below the candidate threshold %d", out.Score, cfg.MinCandidateScore))
	}
	out.IsCandidate = len(out.ExcludeReasons) == 0
	if out.IsCandidate && len(out.Reasons) == 0 {
		out.Reasons = []string{fmt.Sprintf("score %d meets the candidate threshold", out.Score)}
	}
	return out
}

func gradeSelectivity(sel float64) SelectivityGrade {
	switch {
	case sel <= 0.01:
		return SelectivityHigh
	case sel <= 0.1:
		return SelectivityMedium
	default:
		return SelectivityLow
	}
}

// roleRule awards the base score for how the column is used.
func roleRule(in ScoreInput, _, _ float64, _ bool) verdict {
	switch in.ConditionType {
	case sqlparse.ConditionJoin:
		if in.Operator == sqlparse.OpEqual || in.Operator == "" {
			return verdict{points: 80, reason: "equi-join column looked up for every driving row"}
		}
		return verdict{points: 50, reason: fmt.Sprintf("non-equi join (%s) can use an index range scan", in.Operator)}
	case sqlparse.ConditionOrderBy:
		return verdict{points: 40, reason: "ORDER BY column; an index can avoid a sort"}
	}

	switch in.Operator {
	case sqlparse.OpEqual:
		return verdict{points: 100, reason: "equality predicate allows an index unique or range seek"}
	case sqlparse.OpIn:
		return verdict{points: 80, reason: "IN list is served by repeated index seeks"}
	case sqlparse.OpLess, sqlparse.OpGreater, sqlparse.OpLessEqual, sqlparse.OpGreaterEqual, sqlparse.OpBetween:
		return verdict{points: 60, reason: fmt.Sprintf("range predicate (%s) allows an index range scan", in.Operator)}
	case sqlparse.OpLike:
		return verdict{points: 50, reason: "prefix LIKE allows an index range scan"}
	case sqlparse.OpIsNotNull:
		return verdict{points: 20}
	case sqlparse.OpIsNull, sqlparse.OpNotEqual, sqlparse.OpNotIn, sqlparse.OpNotLike, sqlparse.OpNotBetween:
		return verdict{}
	}
	return verdict{points: 30, reason: "column is filtered in WHERE"}
}

func negationRule(in ScoreInput, _, _ float64, _ bool) verdict {
	switch in.Operator {
	case sqlparse.OpNotEqual, sqlparse.OpNotIn, sqlparse.OpNotLike, sqlparse.OpNotBetween:
		return verdict{exclude: fmt.Sprintf("negated predicate (%s) cannot drive an index seek", in.Operator)}
	}
	return verdict{}
}

func wildcardRule(in ScoreInput, _, _ float64, _ bool) verdict {
	if in.Operator != sqlparse.OpLike && in.Operator != sqlparse.OpNotLike {
		return verdict{}
	}
	if strings.HasPrefix(in.Value, "%") || strings.HasPrefix(in.Value, "_") {
		return verdict{exclude: fmt.Sprintf("leading wildcard in LIKE '%s' defeats a B-tree range scan", in.Value)}
	}
	return verdict{}
}

func nullCheckRule(in ScoreInput, _, _ float64, _ bool) verdict {
	switch in.Operator {
	case sqlparse.OpIsNull:
		return verdict{exclude: "IS NULL cannot use a B-tree index; NULL keys are not stored"}
	case sqlparse.OpIsNotNull:
		return verdict{points: -30, reason: "IS NOT NULL usually matches most rows"}
	}
	return verdict{}
}

func functionRule(in ScoreInput, _, _ float64, _ bool) verdict {
	switch in.Function {
	case "":
		return verdict{}
	case "EXPR":
		return verdict{exclude: "column is used inside an expression; a plain index cannot be used"}
	}
	return verdict{exclude: fmt.Sprintf("column is wrapped in %s(); only a function-based index could serve it", in.Function)}
}

func selectivityRule(_ ScoreInput, sel, _ float64, measured bool) verdict {
	if measured && sel > maxSelectivityForIndex {
		return verdict{exclude: fmt.Sprintf("measured selectivity %.2f keeps too many rows for an index", sel)}
	}
	bonus := int(math.Round((1 - clamp01(sel)) * 30))
	source := "assumed"
	if measured {
		source = "measured"
	}
	return verdict{points: bonus, reason: fmt.Sprintf("%s selectivity %.4f adds %d", source, sel, bonus)}
}

func nullRatioRule(_ ScoreInput, _, nullRatio float64, _ bool) verdict {
	penalty := int(math.Round(clamp01(nullRatio) * 20))
	if penalty == 0 {
		return verdict{}
	}
	return verdict{points: -penalty}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// AnalyzeColumns scores every participating column of p in parse order.
// lookup returns measured selectivity and null ratio for a column, if any.
func AnalyzeColumns(p *sqlparse.ParsedSQL, cfg ScoringConfig, lookup func(table, column string) (sel, nullRatio *float64)) []ColumnAnalysis {
	out := make([]ColumnAnalysis, 0, len(p.Columns))
	for _, c := range p.Columns {
		if c.Condition.Type == sqlparse.ConditionNone {
			continue
		}
		in := ScoreInput{
			ConditionType: c.Condition.Type,
			Operator:      c.Condition.Operator,
			Value:         c.Condition.Value,
			Function:      c.Condition.Function,
		}
		if lookup != nil {
			in.Selectivity, in.NullRatio = lookup(c.TableName, c.Name)
		}
		s := ScoreColumn(in, cfg)
		out = append(out, ColumnAnalysis{
			ColumnID:         c.ID,
			TableID:          c.TableID,
			TableName:        c.TableName,
			ColumnName:       c.Name,
			ConditionType:    c.Condition.Type,
			Operator:         c.Condition.Operator,
			IsIndexable:      s.IsCandidate,
			Score:            s.Score,
			Reasons:          s.Reasons,
			ExcludeReasons:   s.ExcludeReasons,
			SelectivityGrade: s.Grade,
			StatsSource:      s.StatsSource,
		})
	}
	return out
}
