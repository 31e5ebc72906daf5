package analyzer

import (
	"sort"

	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// BuildDiagram assembles nodes, edges and the access path. Node order
// follows table declaration order; columns with a point number come first,
// by number, followed by the remaining analysed columns in parse order.
func BuildDiagram(p *sqlparse.ParsedSQL, analyses []ColumnAnalysis, indexes metadata.IndexMap, path []AccessStep, points []IndexPoint) Diagram {
	pointByColumn := make(map[string]IndexPoint, len(points))
	for _, pt := range points {
		pointByColumn[pt.ColumnID] = pt
	}
	stepByTable := make(map[string]AccessStep, len(path))
	for _, s := range path {
		stepByTable[s.TableID] = s
	}

	nodes := make([]DiagramNode, 0, len(p.Tables))
	for _, t := range p.Tables {
		step := stepByTable[t.ID]
		node := DiagramNode{
			TableID:           t.ID,
			TableName:         t.Name,
			Schema:            t.Schema,
			Alias:             t.Alias,
			IsOuterJoinTarget: t.IsOuterJoinTarget,
			IsEntry:           step.Reason == ReasonEntry,
			AccessOrder:       step.Step,
			Columns:           []DiagramColumn{},
		}
		tableIndexes := indexes.For(t.Name)
		for _, a := range analyses {
			if a.TableID != t.ID {
				continue
			}
			col := DiagramColumn{
				ColumnID:      a.ColumnID,
				Name:          a.ColumnName,
				ConditionType: a.ConditionType,
				Operator:      a.Operator,
				IsCandidate:   a.IsIndexable,
			}
			if pt, ok := pointByColumn[a.ColumnID]; ok {
				col.Position = pt.PointNumber
				col.PointType = pt.PointType
				if pt.ExistingIndex != nil {
					col.HasIndex = true
					col.IndexName = pt.ExistingIndex.IndexName
				}
			} else if idx, _, found := FindCoveringIndex(tableIndexes, a.ColumnName); found {
				col.HasIndex = true
				col.IndexName = idx.IndexName
			}
			node.Columns = append(node.Columns, col)
		}
		sort.SliceStable(node.Columns, func(i, j int) bool {
			pi, pj := node.Columns[i].Position, node.Columns[j].Position
			switch {
			case pi == 0:
				return false
			case pj == 0:
				return true
			default:
				return pi < pj
			}
		})
		nodes = append(nodes, node)
	}

	edges := make([]DiagramEdge, 0, len(p.Joins))
	for _, j := range p.Joins {
		style := LineSolid
		if j.JoinType.IsOuter() {
			style = LineDashed
		}
		edges = append(edges, DiagramEdge{
			JoinID:        j.ID,
			SourceTableID: j.SourceTableID,
			SourceColumn:  columnName(p, j.SourceColumnID),
			TargetTableID: j.TargetTableID,
			TargetColumn:  columnName(p, j.TargetColumnID),
			JoinType:      j.JoinType,
			LineStyle:     style,
		})
	}

	if path == nil {
		path = []AccessStep{}
	}
	return Diagram{Nodes: nodes, Edges: edges, RecommendedAccessPath: path}
}
