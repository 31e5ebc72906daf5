package analyzer

import (
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// Priority ranks an index point or recommendation.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

var priorityOrder = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns the ordering weight of p; higher is more urgent.
func (p Priority) Rank() int {
	return priorityOrder[p]
}

// PointType classifies why an index point exists.
type PointType string

const (
	PointEntry  PointType = "ENTRY"
	PointJoin   PointType = "JOIN"
	PointFilter PointType = "FILTER"
	PointOrder  PointType = "ORDER"
)

// SelectivityGrade buckets the estimated fraction of rows a predicate keeps.
type SelectivityGrade string

const (
	SelectivityHigh   SelectivityGrade = "HIGH"
	SelectivityMedium SelectivityGrade = "MEDIUM"
	SelectivityLow    SelectivityGrade = "LOW"
)

// Coverage describes what is known about an index point's existing index.
type Coverage string

const (
	CoverageCovered Coverage = "covered"
	CoverageMissing Coverage = "missing"
	// CoverageUnknown means index metadata was unavailable.
	CoverageUnknown Coverage = "unknown"
)

// LineStyle is the diagram edge style for a join.
type LineStyle string

const (
	LineSolid  LineStyle = "SOLID"
	LineDashed LineStyle = "DASHED"
)

// AccessReason explains how a table is reached in the access path.
type AccessReason string

const (
	ReasonEntry        AccessReason = "ENTRY"
	ReasonJoin         AccessReason = "JOIN"
	ReasonOuterJoin    AccessReason = "OUTER_JOIN"
	ReasonDisconnected AccessReason = "DISCONNECTED"
)

// Stats sources reported on a ColumnAnalysis.
const (
	StatsSourceDefault    = "default"
	StatsSourceStatistics = "statistics"
)

// ColumnAnalysis is the scorer's verdict on one participating column.
type ColumnAnalysis struct {
	ColumnID         string                 `json:"columnId"`
	TableID          string                 `json:"tableId"`
	TableName        string                 `json:"tableName"`
	ColumnName       string                 `json:"columnName"`
	ConditionType    sqlparse.ConditionType `json:"conditionType"`
	Operator         string                 `json:"operator,omitempty"`
	IsIndexable      bool                   `json:"isIndexable"`
	Score            int                    `json:"score"`
	Reasons          []string               `json:"reasons,omitempty"`
	ExcludeReasons   []string               `json:"excludeReasons,omitempty"`
	SelectivityGrade SelectivityGrade       `json:"selectivityGrade"`
	StatsSource      string                 `json:"statsSource"`
}

// IndexPoint is one numbered position in the access path where an index
// decision is evaluated.
type IndexPoint struct {
	PointNumber   int                     `json:"pointNumber"`
	TableID       string                  `json:"tableId"`
	TableName     string                  `json:"tableName"`
	TableAlias    string                  `json:"tableAlias,omitempty"`
	ColumnID      string                  `json:"columnId"`
	ColumnName    string                  `json:"columnName"`
	ConditionType sqlparse.ConditionType  `json:"conditionType"`
	PointType     PointType               `json:"pointType"`
	Priority      Priority                `json:"priority"`
	Score         int                     `json:"score"`
	ExistingIndex *metadata.ExistingIndex `json:"existingIndex,omitempty"`
	NeedsIndex    bool                    `json:"needsIndex"`
	Coverage      Coverage                `json:"coverage"`
	// LeadingColumn is set when the covering index starts with the column.
	LeadingColumn bool `json:"leadingColumn,omitempty"`
}

// DiagramColumn is a column shown inside a diagram node.
type DiagramColumn struct {
	ColumnID      string                 `json:"columnId"`
	Name          string                 `json:"name"`
	Position      int                    `json:"position,omitempty"`
	ConditionType sqlparse.ConditionType `json:"conditionType"`
	Operator      string                 `json:"operator,omitempty"`
	PointType     PointType              `json:"pointType,omitempty"`
	HasIndex      bool                   `json:"hasIndex"`
	IndexName     string                 `json:"indexName,omitempty"`
	IsCandidate   bool                   `json:"isCandidate"`
}

// DiagramNode is one table occurrence.
type DiagramNode struct {
	TableID           string          `json:"tableId"`
	TableName         string          `json:"tableName"`
	Schema            string          `json:"schema,omitempty"`
	Alias             string          `json:"alias,omitempty"`
	IsOuterJoinTarget bool            `json:"isOuterJoinTarget"`
	IsEntry           bool            `json:"isEntry"`
	AccessOrder       int             `json:"accessOrder"`
	Columns           []DiagramColumn `json:"columns"`
}

// DiagramEdge is one join.
type DiagramEdge struct {
	JoinID        string            `json:"joinId"`
	SourceTableID string            `json:"sourceTableId"`
	SourceColumn  string            `json:"sourceColumn,omitempty"`
	TargetTableID string            `json:"targetTableId"`
	TargetColumn  string            `json:"targetColumn,omitempty"`
	JoinType      sqlparse.JoinType `json:"joinType"`
	LineStyle     LineStyle         `json:"lineStyle"`
}

// AccessStep is one table in the recommended access path.
type AccessStep struct {
	Step      int          `json:"step"`
	TableID   string       `json:"tableId"`
	TableName string       `json:"tableName"`
	Alias     string       `json:"alias,omitempty"`
	Reason    AccessReason `json:"reason"`
	// ViaColumn is the entry filter column or the join column on this table
	// used to reach it.
	ViaColumn   string `json:"viaColumn,omitempty"`
	FromTableID string `json:"fromTableId,omitempty"`
}

// Diagram is a renderable graph of the statement. Layout is left to the
// consumer.
type Diagram struct {
	Nodes                 []DiagramNode `json:"nodes"`
	Edges                 []DiagramEdge `json:"edges"`
	RecommendedAccessPath []AccessStep  `json:"recommendedAccessPath"`
}

// Recommendation is a concrete tuning action for one or more index points
// that lack an index.
type Recommendation struct {
	Priority            Priority  `json:"priority"`
	PointType           PointType `json:"pointType"`
	PointNumbers        []int     `json:"pointNumbers"`
	Schema              string    `json:"schema,omitempty"`
	TableName           string    `json:"tableName"`
	ColumnName          string    `json:"columnName"`
	IndexName           string    `json:"indexName"`
	DDL                 string    `json:"ddl"`
	Rationale           string    `json:"rationale"`
	ExpectedImprovement string    `json:"expectedImprovement"`
}

// Summary aggregates the analysis into counts and a health score.
type Summary struct {
	TableCount         int `json:"tableCount"`
	JoinCount          int `json:"joinCount"`
	IndexPointCount    int `json:"indexPointCount"`
	ExistingIndexCount int `json:"existingIndexCount"`
	MissingIndexCount  int `json:"missingIndexCount"`
	CriticalIssueCount int `json:"criticalIssueCount"`
	OverallHealthScore int `json:"overallHealthScore"`
}

// MaxPriority returns the highest priority among recs, or "" when empty.
func MaxPriority(recs []Recommendation) Priority {
	var max Priority
	for _, r := range recs {
		if max == "" || r.Priority.Rank() > max.Rank() {
			max = r.Priority
		}
	}
	return max
}

// ExitCode maps the highest recommendation priority to a CLI exit code.
func ExitCode(p Priority) int {
	switch p {
	case PriorityCritical:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}
