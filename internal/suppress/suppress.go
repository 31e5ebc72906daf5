package suppress

import (
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

// IgnoreFileName is looked up in the working directory.
const IgnoreFileName = ".oraspectre-ignore.yml"

// Suppression is a single rule in the ignore file.
type Suppression struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// IgnoreFile is the structure of .oraspectre-ignore.yml.
type IgnoreFile struct {
	Suppressions []Suppression `yaml:"suppressions"`
}

// Rules holds loaded suppression rules from all sources.
type Rules struct {
	ignoreFile IgnoreFile
	// Point types and tables from config exclude.
	configTypes  []string
	configTables []string
}

// LoadRules loads suppression rules from .oraspectre-ignore.yml in the given directory.
func LoadRules(dir string) (*Rules, error) {
	r := &Rules{}

	path := filepath.Join(dir, IgnoreFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &r.ignoreFile); err != nil {
		return nil, err
	}
	return r, nil
}

// WithConfigExclusions adds point-type and table exclusions from config.
func (r *Rules) WithConfigExclusions(pointTypes, tables []string) {
	r.configTypes = pointTypes
	r.configTables = tables
}

// Empty reports whether no rule is loaded.
func (r *Rules) Empty() bool {
	return len(r.ignoreFile.Suppressions) == 0 && len(r.configTypes) == 0 && len(r.configTables) == 0
}

// IsSuppressed returns true if the recommendation should be suppressed.
func (r *Rules) IsSuppressed(rec *analyzer.Recommendation) bool {
	for _, pt := range r.configTypes {
		if strings.EqualFold(string(rec.PointType), pt) {
			return true
		}
	}
	for _, t := range r.configTables {
		if matchTable(t, rec.TableName) {
			return true
		}
	}

	for _, s := range r.ignoreFile.Suppressions {
		if !matchTable(s.Table, rec.TableName) {
			continue
		}
		if s.Column != "" && !strings.EqualFold(s.Column, rec.ColumnName) {
			continue
		}
		if s.Type == "" || strings.EqualFold(s.Type, string(rec.PointType)) {
			return true
		}
	}

	return false
}

// Filter removes suppressed recommendations and returns the remaining ones.
// Returns the filtered list and the number of suppressed recommendations.
func (r *Rules) Filter(recs []analyzer.Recommendation) ([]analyzer.Recommendation, int) {
	if r.Empty() {
		return recs, 0
	}

	filtered := make([]analyzer.Recommendation, 0, len(recs))
	suppressed := 0
	for i := range recs {
		if r.IsSuppressed(&recs[i]) {
			suppressed++
		} else {
			filtered = append(filtered, recs[i])
		}
	}
	return filtered, suppressed
}

// matchTable matches a table name against a pattern that supports trailing
// wildcards. Oracle folds unquoted names to upper case, so matching ignores
// case. A schema-qualified pattern matches the bare name.
func matchTable(pattern, table string) bool {
	pattern = strings.ToLower(pattern)
	table = strings.ToLower(table)
	if i := strings.LastIndexByte(pattern, '.'); i >= 0 {
		pattern = pattern[i+1:]
	}

	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(table, prefix)
	}
	return pattern == table
}

// HasInlineIgnore returns true if the text contains an oraspectre:ignore comment.
func HasInlineIgnore(text string) bool {
	return strings.Contains(text, "oraspectre:ignore")
}
