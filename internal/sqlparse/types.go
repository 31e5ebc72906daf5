package sqlparse

import "strings"

// ConditionType describes how a column participates in a statement.
type ConditionType string

const (
	ConditionNone    ConditionType = "NONE"
	ConditionWhere   ConditionType = "WHERE"
	ConditionJoin    ConditionType = "JOIN"
	ConditionOrderBy ConditionType = "ORDER_BY"
)

// JoinType is the semantic join kind between two table occurrences.
type JoinType string

const (
	JoinInner      JoinType = "INNER"
	JoinLeftOuter  JoinType = "LEFT_OUTER"
	JoinRightOuter JoinType = "RIGHT_OUTER"
)

// IsOuter reports whether the join preserves rows of one side.
func (j JoinType) IsOuter() bool {
	return j == JoinLeftOuter || j == JoinRightOuter
}

// StatementType is the leading statement kind.
type StatementType string

const (
	StatementSelect StatementType = "SELECT"
	StatementUpdate StatementType = "UPDATE"
	StatementDelete StatementType = "DELETE"
	StatementInsert StatementType = "INSERT"
)

// Comparison operators recorded on conditions.
const (
	OpEqual        = "="
	OpNotEqual     = "<>"
	OpLess         = "<"
	OpGreater      = ">"
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
	OpLike         = "LIKE"
	OpNotLike      = "NOT LIKE"
	OpIn           = "IN"
	OpNotIn        = "NOT IN"
	OpBetween      = "BETWEEN"
	OpNotBetween   = "NOT BETWEEN"
	OpIsNull       = "IS NULL"
	OpIsNotNull    = "IS NOT NULL"
	OpAsc          = "ASC"
	OpDesc         = "DESC"
)

// Table is one table occurrence in the statement. The same physical table
// referenced under two aliases yields two Tables.
type Table struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Schema            string `json:"schema,omitempty"`
	Alias             string `json:"alias,omitempty"`
	IsOuterJoinTarget bool   `json:"isOuterJoinTarget"`
}

// Label returns the alias when present, otherwise the table name.
func (t *Table) Label() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Condition records how a column is used.
type Condition struct {
	Type     ConditionType `json:"type"`
	Operator string        `json:"operator,omitempty"`
	// Value is the literal compared against, when it is a string literal
	// (LIKE patterns need it).
	Value string `json:"value,omitempty"`
	// Function is set when the column is wrapped in a function call.
	Function string `json:"function,omitempty"`
}

// Column is a column reference scoped to one table occurrence.
type Column struct {
	ID        string    `json:"id"`
	TableID   string    `json:"tableId"`
	TableName string    `json:"tableName"`
	Name      string    `json:"name"`
	Condition Condition `json:"condition"`
}

// Join is an edge between two table occurrences. For outer joins the target
// is the dependent (null-extended) side.
type Join struct {
	ID             string   `json:"id"`
	SourceTableID  string   `json:"sourceTableId"`
	SourceColumnID string   `json:"sourceColumnId,omitempty"`
	TargetTableID  string   `json:"targetTableId"`
	TargetColumnID string   `json:"targetColumnId,omitempty"`
	JoinType       JoinType `json:"joinType"`
	Operator       string   `json:"operator,omitempty"`
}

// ParsedSQL is the structural model of one statement. Tables, Columns and
// Joins are arenas addressed by id; slice order is parse order.
type ParsedSQL struct {
	StatementType StatementType `json:"statementType"`
	Tables        []Table       `json:"tables"`
	Columns       []Column      `json:"columns"`
	Joins         []Join        `json:"joins"`
	// Target is the INSERT target, which is written, not read.
	Target string `json:"target,omitempty"`
	// Unresolved counts column references that could not be tied to a table.
	Unresolved int `json:"unresolved"`
}

// Table returns the table with the given id.
func (p *ParsedSQL) Table(id string) (*Table, bool) {
	for i := range p.Tables {
		if p.Tables[i].ID == id {
			return &p.Tables[i], true
		}
	}
	return nil, false
}

// Column returns the column with the given id.
func (p *ParsedSQL) Column(id string) (*Column, bool) {
	for i := range p.Columns {
		if p.Columns[i].ID == id {
			return &p.Columns[i], true
		}
	}
	return nil, false
}

// TableIndex maps table ids to their declaration position.
func (p *ParsedSQL) TableIndex() map[string]int {
	idx := make(map[string]int, len(p.Tables))
	for i := range p.Tables {
		idx[p.Tables[i].ID] = i
	}
	return idx
}

// ColumnsOf returns the columns of a table in parse order.
func (p *ParsedSQL) ColumnsOf(tableID string) []Column {
	var cols []Column
	for _, c := range p.Columns {
		if c.TableID == tableID {
			cols = append(cols, c)
		}
	}
	return cols
}

// TableNames returns the distinct physical table names in declaration order.
func (p *ParsedSQL) TableNames() []string {
	seen := make(map[string]bool, len(p.Tables))
	names := make([]string, 0, len(p.Tables))
	for _, t := range p.Tables {
		key := strings.ToUpper(t.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, t.Name)
	}
	return names
}
