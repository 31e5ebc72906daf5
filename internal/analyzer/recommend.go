package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MaxIdentifierLength is Oracle's classic identifier limit.
const MaxIdentifierLength = 30

var improvementByPriority = map[Priority]string{
	PriorityCritical: "order of magnitude",
	PriorityHigh:     "5-10x",
	PriorityMedium:   "2-5x",
}

// Recommend turns uncovered index points into CREATE INDEX actions, ordered
// CRITICAL, HIGH, MEDIUM and then by point number. Points that would yield
// the same DDL are merged into one recommendation at their highest priority.
func Recommend(points []IndexPoint, schema string) []Recommendation {
	var recs []Recommendation
	byDDL := make(map[string]int)

	for _, pt := range points {
		if !pt.NeedsIndex || pt.Priority == PriorityLow {
			continue
		}
		name := IndexName(pt.TableName, pt.ColumnName)
		ddl := CreateIndexDDL(name, schema, pt.TableName, pt.ColumnName)

		if i, ok := byDDL[ddl]; ok {
			r := &recs[i]
			r.PointNumbers = append(r.PointNumbers, pt.PointNumber)
			if pt.Priority.Rank() > r.Priority.Rank() {
				r.Priority = pt.Priority
				r.PointType = pt.PointType
				r.Rationale = rationale(pt)
				r.ExpectedImprovement = improvementByPriority[pt.Priority]
			}
			continue
		}

		byDDL[ddl] = len(recs)
		recs = append(recs, Recommendation{
			Priority:            pt.Priority,
			PointType:           pt.PointType,
			PointNumbers:        []int{pt.PointNumber},
			Schema:              strings.ToUpper(schema),
			TableName:           pt.TableName,
			ColumnName:          pt.ColumnName,
			IndexName:           name,
			DDL:                 ddl,
			Rationale:           rationale(pt),
			ExpectedImprovement: improvementByPriority[pt.Priority],
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() > recs[j].Priority.Rank()
		}
		return recs[i].PointNumbers[0] < recs[j].PointNumbers[0]
	})
	return recs
}

// IndexName builds IX_<TABLE>_<COLUMN> from the upper-cased names, with
// every character outside [A-Z0-9_] folded to an underscore, cut to the
// identifier limit.
func IndexName(table, column string) string {
	name := sanitizeIdentifier("IX_" + table + "_" + column)
	if len(name) > MaxIdentifierLength {
		name = name[:MaxIdentifierLength]
	}
	return strings.TrimRight(name, "_")
}

func sanitizeIdentifier(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToUpper(s) {
		ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			if !underscore {
				b.WriteByte('_')
			}
			underscore = true
			continue
		}
		b.WriteRune(r)
		underscore = false
	}
	return b.String()
}

var simpleIdentifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)

// quoteIdentifier double-quotes names Oracle would not accept bare.
func quoteIdentifier(name string) string {
	if simpleIdentifier.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CreateIndexDDL renders the CREATE INDEX statement.
func CreateIndexDDL(indexName, schema, table, column string) string {
	target := quoteIdentifier(table)
	if schema != "" {
		target = quoteIdentifier(strings.ToUpper(schema)) + "." + target
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s(%s);", indexName, target, quoteIdentifier(column))
}

func rationale(pt IndexPoint) string {
	col := pt.TableName + "." + pt.ColumnName
	switch pt.PointType {
	case PointEntry:
		return fmt.Sprintf("%s filters the entry table; without an index the access path starts with a full table scan", col)
	case PointJoin:
		return fmt.Sprintf("%s is looked up for every row of the driving table; without an index each lookup scans the table", col)
	case PointFilter:
		return fmt.Sprintf("%s filters a joined table; an index discards rows before they are joined", col)
	case PointOrder:
		return fmt.Sprintf("%s orders the result; an index can return rows presorted and avoid a sort", col)
	}
	return fmt.Sprintf("%s has no supporting index", col)
}
