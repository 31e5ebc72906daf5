package suppress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

func rec(pt analyzer.PointType, table, column string) analyzer.Recommendation {
	return analyzer.Recommendation{PointType: pt, TableName: table, ColumnName: column}
}

func TestLoadRules_NoFile(t *testing.T) {
	rules, err := LoadRules(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !rules.Empty() {
		t.Error("expected empty rules")
	}
}

func TestLoadRules_ValidFile(t *testing.T) {
	dir := t.TempDir()
	content := `suppressions:
  - table: audit_log
    reason: "Append only, never queried by status"
  - table: tmp_load_*
    type: ENTRY
    reason: "Truncated nightly"
  - table: orders
    column: notes
`
	if err := os.WriteFile(filepath.Join(dir, ".oraspectre-ignore.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.ignoreFile.Suppressions) != 3 {
		t.Fatalf("expected 3 suppressions, got %d", len(rules.ignoreFile.Suppressions))
	}
	if rules.ignoreFile.Suppressions[2].Column != "notes" {
		t.Errorf("column = %q, want notes", rules.ignoreFile.Suppressions[2].Column)
	}
}

func TestLoadRules_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".oraspectre-ignore.yml"), []byte("{{invalid"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRules(dir)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestIsSuppressed(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Table: "audit_log"},
				{Table: "tmp_load_*", Type: "ENTRY"},
				{Table: "orders", Column: "notes"},
				{Table: "HR.Employees", Type: "order"},
			},
		},
	}

	tests := []struct {
		name string
		rec  analyzer.Recommendation
		want bool
	}{
		{"exact table", rec(analyzer.PointFilter, "audit_log", "x"), true},
		{"case-insensitive table", rec(analyzer.PointFilter, "AUDIT_LOG", "x"), true},
		{"other table", rec(analyzer.PointFilter, "users", "x"), false},
		{"glob with matching type", rec(analyzer.PointEntry, "TMP_LOAD_01", "id"), true},
		{"glob with other type", rec(analyzer.PointJoin, "tmp_load_01", "id"), false},
		{"column rule match", rec(analyzer.PointFilter, "orders", "NOTES"), true},
		{"column rule other column", rec(analyzer.PointFilter, "orders", "status"), false},
		{"schema-qualified pattern", rec(analyzer.PointOrder, "employees", "hired"), true},
		{"schema-qualified pattern other type", rec(analyzer.PointJoin, "employees", "dept_id"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.IsSuppressed(&tt.rec); got != tt.want {
				t.Errorf("IsSuppressed(%+v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

func TestIsSuppressed_ConfigExclusions(t *testing.T) {
	rules := &Rules{}
	rules.WithConfigExclusions([]string{"order"}, []string{"staging_*"})

	r1 := rec(analyzer.PointOrder, "anything", "created")
	if !rules.IsSuppressed(&r1) {
		t.Error("config point type should be suppressed")
	}

	r2 := rec(analyzer.PointFilter, "STAGING_ORDERS", "status")
	if !rules.IsSuppressed(&r2) {
		t.Error("config table should be suppressed")
	}

	r3 := rec(analyzer.PointFilter, "orders", "status")
	if rules.IsSuppressed(&r3) {
		t.Error("unmatched recommendation should not be suppressed")
	}
}

func TestFilter(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{{Table: "audit_log"}},
		},
	}

	recs := []analyzer.Recommendation{
		rec(analyzer.PointFilter, "audit_log", "created"),
		rec(analyzer.PointEntry, "orders", "status"),
		rec(analyzer.PointJoin, "customers", "id"),
	}

	filtered, suppressed := rules.Filter(recs)
	if suppressed != 1 {
		t.Errorf("expected 1 suppressed, got %d", suppressed)
	}
	if len(filtered) != 2 {
		t.Errorf("expected 2 remaining, got %d", len(filtered))
	}
}

func TestFilter_NoRules(t *testing.T) {
	rules := &Rules{}
	recs := []analyzer.Recommendation{rec(analyzer.PointEntry, "orders", "status")}

	filtered, suppressed := rules.Filter(recs)
	if suppressed != 0 {
		t.Errorf("expected 0 suppressed, got %d", suppressed)
	}
	if len(filtered) != 1 {
		t.Errorf("expected 1 remaining, got %d", len(filtered))
	}
}

func TestHasInlineIgnore(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"SELECT * FROM audit_log -- oraspectre:ignore", true},
		{"/* oraspectre:ignore */ SELECT 1 FROM dual", true},
		{"SELECT * FROM orders WHERE status = 'OPEN'", false},
		{"-- some other comment", false},
	}
	for _, tt := range tests {
		got := HasInlineIgnore(tt.text)
		if got != tt.want {
			t.Errorf("HasInlineIgnore(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestMatchTable(t *testing.T) {
	tests := []struct {
		pattern, table string
		want           bool
	}{
		{"orders", "orders", true},
		{"orders", "customers", false},
		{"tmp_*", "tmp_load_001", true},
		{"tmp_*", "permanent_table", false},
		{"Orders", "ORDERS", true},
		{"sales.orders", "orders", true},
	}
	for _, tt := range tests {
		got := matchTable(tt.pattern, tt.table)
		if got != tt.want {
			t.Errorf("matchTable(%q, %q) = %v, want %v", tt.pattern, tt.table, got, tt.want)
		}
	}
}
