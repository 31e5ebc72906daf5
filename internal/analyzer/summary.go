package analyzer

import (
	"math"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// HealthScore grades coverage 0-100: the covered share of points minus
// penalty per critical issue. No points is a perfect score.
func HealthScore(existing, total, critical, penalty int) int {
	if total <= 0 {
		return 100
	}
	if existing > total {
		existing = total
	}
	score := int(math.Round(100*float64(existing)/float64(total))) - penalty*critical
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// Summarize counts tables, joins and index points.
func Summarize(p *sqlparse.ParsedSQL, points []IndexPoint, penalty int) Summary {
	s := Summary{
		TableCount:      len(p.Tables),
		JoinCount:       len(p.Joins),
		IndexPointCount: len(points),
	}
	for _, pt := range points {
		if pt.NeedsIndex {
			s.MissingIndexCount++
		} else {
			s.ExistingIndexCount++
		}
		if pt.Priority == PriorityCritical {
			s.CriticalIssueCount++
		}
	}
	s.OverallHealthScore = HealthScore(s.ExistingIndexCount, s.IndexPointCount, s.CriticalIssueCount, penalty)
	return s
}
