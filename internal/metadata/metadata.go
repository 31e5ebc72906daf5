package metadata

import (
	"context"
	"strings"
)

// ExistingIndex is an index already defined on a table. Columns are in
// definition order; Columns[0] is the leading column.
type ExistingIndex struct {
	IndexName string   `json:"indexName" yaml:"name"`
	Columns   []string `json:"columns" yaml:"columns"`
	Unique    bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Position returns the 0-based position of column in the index, or -1.
func (i ExistingIndex) Position(column string) int {
	for pos, c := range i.Columns {
		if strings.EqualFold(c, column) {
			return pos
		}
	}
	return -1
}

// IndexMap holds existing indexes keyed by table name. Keys are normalised
// on insert and lookup, so callers never compare identifiers themselves.
type IndexMap map[string][]ExistingIndex

// NewIndexMap returns an empty IndexMap.
func NewIndexMap() IndexMap {
	return make(IndexMap)
}

// Add appends idx to the indexes of table.
func (m IndexMap) Add(table string, idx ExistingIndex) {
	key := normalize(table)
	m[key] = append(m[key], idx)
}

// For returns the indexes of table, matched case-insensitively.
func (m IndexMap) For(table string) []ExistingIndex {
	if m == nil {
		return nil
	}
	return m[normalize(table)]
}

// Len returns the number of indexes across all tables.
func (m IndexMap) Len() int {
	n := 0
	for _, idx := range m {
		n += len(idx)
	}
	return n
}

// ColumnStats are optimizer statistics for one column.
type ColumnStats struct {
	NumDistinct int64 `json:"numDistinct" yaml:"num_distinct"`
	NumNulls    int64 `json:"numNulls" yaml:"num_nulls"`
	NumRows     int64 `json:"numRows" yaml:"num_rows"`
}

// Selectivity estimates the fraction of rows matched by an equality
// predicate, 1/NDV.
func (s ColumnStats) Selectivity() (float64, bool) {
	if s.NumDistinct <= 0 {
		return 0, false
	}
	return 1 / float64(s.NumDistinct), true
}

// NullRatio returns the fraction of NULL values.
func (s ColumnStats) NullRatio() (float64, bool) {
	if s.NumRows <= 0 {
		return 0, false
	}
	ratio := float64(s.NumNulls) / float64(s.NumRows)
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}

// StatsMap holds column statistics keyed by table and column.
type StatsMap map[string]ColumnStats

// NewStatsMap returns an empty StatsMap.
func NewStatsMap() StatsMap {
	return make(StatsMap)
}

// Add records stats for table.column.
func (m StatsMap) Add(table, column string, s ColumnStats) {
	m[statsKey(table, column)] = s
}

// Lookup returns the stats of table.column, matched case-insensitively.
func (m StatsMap) Lookup(table, column string) (ColumnStats, bool) {
	if m == nil {
		return ColumnStats{}, false
	}
	s, ok := m[statsKey(table, column)]
	return s, ok
}

func statsKey(table, column string) string {
	return normalize(table) + "." + normalize(column)
}

// normalize folds an identifier for case-insensitive comparison.
func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Provider supplies existing index definitions. Implementations may fail;
// callers are expected to degrade rather than abort.
type Provider interface {
	IndexesForTables(ctx context.Context, connectionID, schema string, tables []string) (IndexMap, error)
}

// StatsProvider is implemented by providers that can also supply column
// statistics.
type StatsProvider interface {
	ColumnStatsForTables(ctx context.Context, connectionID, schema string, tables []string) (StatsMap, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, connectionID, schema string, tables []string) (IndexMap, error)

// IndexesForTables calls f.
func (f ProviderFunc) IndexesForTables(ctx context.Context, connectionID, schema string, tables []string) (IndexMap, error) {
	return f(ctx, connectionID, schema, tables)
}

// Static is a Provider backed by fixed data, used for offline analysis and
// tests.
type Static struct {
	Indexes IndexMap
	Stats   StatsMap
}

// IndexesForTables returns the indexes of the requested tables.
func (s *Static) IndexesForTables(_ context.Context, _, _ string, tables []string) (IndexMap, error) {
	out := NewIndexMap()
	for _, t := range tables {
		for _, idx := range s.Indexes.For(t) {
			out.Add(t, idx)
		}
	}
	return out, nil
}

// ColumnStatsForTables returns the stats of the requested tables.
func (s *Static) ColumnStatsForTables(_ context.Context, _, _ string, tables []string) (StatsMap, error) {
	wanted := make(map[string]bool, len(tables))
	for _, t := range tables {
		wanted[normalize(t)] = true
	}
	out := NewStatsMap()
	for key, st := range s.Stats {
		table, _, _ := strings.Cut(key, ".")
		if wanted[table] {
			out[key] = st
		}
	}
	return out, nil
}
