package analyzer

import "github.com/ppiankov/oraspectre/internal/sqlparse"

// EntryColumn picks the highest-scoring indexable WHERE column on an inner
// table. Ties go to the first column in parse order.
func EntryColumn(p *sqlparse.ParsedSQL, analyses []ColumnAnalysis) (ColumnAnalysis, bool) {
	var (
		best  ColumnAnalysis
		found bool
	)
	for _, a := range analyses {
		if a.ConditionType != sqlparse.ConditionWhere || !a.IsIndexable {
			continue
		}
		t, ok := p.Table(a.TableID)
		if !ok || t.IsOuterJoinTarget {
			continue
		}
		if !found || a.Score > best.Score {
			best, found = a, true
		}
	}
	return best, found
}

// AccessOrder returns every table id exactly once in recommended visiting
// order: the entry table, inner tables reachable through inner joins
// breadth-first, remaining inner tables, then outer-join targets.
func AccessOrder(p *sqlparse.ParsedSQL, analyses []ColumnAnalysis) []string {
	steps := AccessPath(p, analyses)
	order := make([]string, len(steps))
	for i, s := range steps {
		order[i] = s.TableID
	}
	return order
}

// AccessPath is AccessOrder with the column and reason each table is
// reached by.
func AccessPath(p *sqlparse.ParsedSQL, analyses []ColumnAnalysis) []AccessStep {
	if len(p.Tables) == 0 {
		return nil
	}

	var inner, outer []string
	for _, t := range p.Tables {
		if t.IsOuterJoinTarget {
			outer = append(outer, t.ID)
		} else {
			inner = append(inner, t.ID)
		}
	}

	steps := make([]AccessStep, 0, len(p.Tables))
	visited := make(map[string]bool, len(p.Tables))
	visit := func(id string, reason AccessReason, via, from string) {
		visited[id] = true
		t, _ := p.Table(id)
		steps = append(steps, AccessStep{
			Step:        len(steps) + 1,
			TableID:     id,
			TableName:   t.Name,
			Alias:       t.Alias,
			Reason:      reason,
			ViaColumn:   via,
			FromTableID: from,
		})
	}

	if len(inner) > 0 {
		entryID, entryColumn := inner[0], ""
		if entry, ok := EntryColumn(p, analyses); ok {
			entryID, entryColumn = entry.TableID, entry.ColumnName
		}
		visit(entryID, ReasonEntry, entryColumn, "")

		queue := []string{entryID}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, j := range p.Joins {
				next, via, ok := innerNeighbour(p, j, cur)
				if !ok || visited[next] {
					continue
				}
				visit(next, ReasonJoin, via, cur)
				queue = append(queue, next)
			}
		}

		for _, id := range inner {
			if !visited[id] {
				visit(id, ReasonDisconnected, "", "")
			}
		}
	}

	for _, id := range outer {
		via, from := outerLink(p, id)
		reason := ReasonOuterJoin
		if from == "" {
			reason = ReasonDisconnected
		}
		visit(id, reason, via, from)
	}
	return steps
}

// innerNeighbour follows join j away from table cur when j is an inner join
// between two inner tables. It returns the neighbour and its join column.
func innerNeighbour(p *sqlparse.ParsedSQL, j sqlparse.Join, cur string) (string, string, bool) {
	if j.JoinType != sqlparse.JoinInner {
		return "", "", false
	}
	var next, colID string
	switch cur {
	case j.SourceTableID:
		next, colID = j.TargetTableID, j.TargetColumnID
	case j.TargetTableID:
		next, colID = j.SourceTableID, j.SourceColumnID
	default:
		return "", "", false
	}
	t, ok := p.Table(next)
	if !ok || t.IsOuterJoinTarget {
		return "", "", false
	}
	return next, columnName(p, colID), true
}

// outerLink finds the join through which outer table id is reached: an
// outer join targeting it first, then any join touching it.
func outerLink(p *sqlparse.ParsedSQL, id string) (via, from string) {
	for _, j := range p.Joins {
		if j.JoinType.IsOuter() && j.TargetTableID == id {
			return columnName(p, j.TargetColumnID), j.SourceTableID
		}
	}
	for _, j := range p.Joins {
		switch id {
		case j.TargetTableID:
			return columnName(p, j.TargetColumnID), j.SourceTableID
		case j.SourceTableID:
			return columnName(p, j.SourceColumnID), j.TargetTableID
		}
	}
	return "", ""
}

func columnName(p *sqlparse.ParsedSQL, id string) string {
	if c, ok := p.Column(id); ok {
		return c.Name
	}
	return ""
}
