package analyzer

import (
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// IdentifyPoints walks tables in access order and numbers each indexable
// column. When metadataAvailable is false every point has unknown coverage
// and is treated as uncovered.
func IdentifyPoints(p *sqlparse.ParsedSQL, analyses []ColumnAnalysis, indexes metadata.IndexMap, order []string, metadataAvailable bool) []IndexPoint {
	byTable := make(map[string][]ColumnAnalysis)
	for _, a := range analyses {
		if !a.IsIndexable || a.ConditionType == sqlparse.ConditionNone {
			continue
		}
		byTable[a.TableID] = append(byTable[a.TableID], a)
	}

	var points []IndexPoint
	for i, tableID := range order {
		t, ok := p.Table(tableID)
		if !ok {
			continue
		}
		for _, a := range byTable[tableID] {
			pointType := classifyPoint(a.ConditionType, i == 0)

			pt := IndexPoint{
				PointNumber:   len(points) + 1,
				TableID:       tableID,
				TableName:     t.Name,
				TableAlias:    t.Alias,
				ColumnID:      a.ColumnID,
				ColumnName:    a.ColumnName,
				ConditionType: a.ConditionType,
				PointType:     pointType,
				Score:         a.Score,
				Coverage:      CoverageUnknown,
				NeedsIndex:    true,
			}
			if metadataAvailable {
				pt.Coverage = CoverageMissing
				if idx, leading, found := FindCoveringIndex(indexes.For(t.Name), a.ColumnName); found {
					pt.ExistingIndex = &idx
					pt.LeadingColumn = leading
					pt.Coverage = CoverageCovered
					pt.NeedsIndex = false
				}
			}
			pt.Priority = pointPriority(pointType, pt.NeedsIndex)
			points = append(points, pt)
		}
	}
	return points
}

func classifyPoint(ct sqlparse.ConditionType, firstTable bool) PointType {
	switch ct {
	case sqlparse.ConditionJoin:
		return PointJoin
	case sqlparse.ConditionOrderBy:
		return PointOrder
	}
	if firstTable {
		return PointEntry
	}
	return PointFilter
}

func pointPriority(pt PointType, needsIndex bool) Priority {
	if !needsIndex {
		return PriorityLow
	}
	switch pt {
	case PointEntry:
		return PriorityCritical
	case PointJoin:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// FindCoveringIndex returns an index containing column, preferring one that
// leads with it. Among equals the earliest index wins.
func FindCoveringIndex(indexes []metadata.ExistingIndex, column string) (metadata.ExistingIndex, bool, bool) {
	var (
		fallback metadata.ExistingIndex
		found    bool
	)
	for _, idx := range indexes {
		switch pos := idx.Position(column); {
		case pos == 0:
			return idx, true, true
		case pos > 0 && !found:
			fallback, found = idx, true
		}
	}
	return fallback, false, found
}
