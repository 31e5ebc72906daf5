package metadata

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Snapshot is the on-disk form of captured index metadata:
//
//	indexes:
//	  CUSTOMERS:
//	    - name: PK_CUSTOMERS
//	      columns: [ID]
//	      unique: true
//	stats:
//	  ORDERS:
//	    STATUS: {num_distinct: 4, num_nulls: 0, num_rows: 100000}
type Snapshot struct {
	Indexes map[string][]ExistingIndex        `yaml:"indexes"`
	Stats   map[string]map[string]ColumnStats `yaml:"stats"`
}

// LoadFile reads a YAML snapshot into a Static provider.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes YAML snapshot data.
func ParseSnapshot(data []byte) (*Static, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse index file: %w", err)
	}

	s := &Static{Indexes: NewIndexMap(), Stats: NewStatsMap()}
	for table, indexes := range snap.Indexes {
		for _, idx := range indexes {
			if idx.IndexName == "" || len(idx.Columns) == 0 {
				return nil, fmt.Errorf("parse index file: index on %s needs a name and columns", table)
			}
			s.Indexes.Add(table, idx)
		}
	}
	for table, columns := range snap.Stats {
		for column, st := range columns {
			s.Stats.Add(table, column, st)
		}
	}
	return s, nil
}
