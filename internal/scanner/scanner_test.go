package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func seedRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "queries/orders.sql", `SET DEFINE OFF
CREATE TABLE orders_archive (id NUMBER);

SELECT o.id
  FROM orders o
 WHERE o.status = 'OPEN';

-- oraspectre:ignore
SELECT * FROM audit_log WHERE id = 1;
`)
	writeFile(t, dir, "app/repo.go", `package app

func find(db *sql.DB) {
	db.Query("SELECT id FROM customers WHERE email = :1", email)
}`)
	writeFile(t, dir, "README.md", "SELECT * FROM nothing")
	writeFile(t, dir, "vendor/lib.sql", "SELECT * FROM vendored;")
	return dir
}

func TestScan_Scripts(t *testing.T) {
	dir := seedRepo(t)

	result, err := Scan(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesScanned != 1 {
		t.Errorf("filesScanned = %d, want 1", result.FilesScanned)
	}
	if result.FilesSkipped != 2 {
		t.Errorf("filesSkipped = %d, want 2", result.FilesSkipped)
	}
	if result.SkippedStatements != 1 {
		t.Errorf("skippedStatements = %d, want 1", result.SkippedStatements)
	}
	if len(result.Statements) != 2 {
		t.Fatalf("statements = %d, want 2: %+v", len(result.Statements), result.Statements)
	}

	first := result.Statements[0]
	if first.File != filepath.Join("queries", "orders.sql") || first.Line != 4 {
		t.Errorf("first location = %s:%d, want queries/orders.sql:4", first.File, first.Line)
	}
	if first.Origin != OriginScript || first.Ignored {
		t.Errorf("first = %+v", first)
	}
	if !strings.HasPrefix(first.Text, "SELECT o.id") {
		t.Errorf("first text = %q", first.Text)
	}

	second := result.Statements[1]
	if !second.Ignored || second.Line != 9 {
		t.Errorf("second = %+v, want ignored at line 9", second)
	}
}

func TestScan_IncludeCode(t *testing.T) {
	dir := seedRepo(t)

	result, err := Scan(dir, Options{IncludeCode: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesScanned != 2 {
		t.Errorf("filesScanned = %d, want 2", result.FilesScanned)
	}
	if len(result.Statements) != 3 {
		t.Fatalf("statements = %d, want 3", len(result.Statements))
	}

	// Sorted by file: app/ before queries/.
	embedded := result.Statements[0]
	if embedded.Origin != OriginEmbedded || embedded.Line != 4 {
		t.Errorf("embedded = %+v", embedded)
	}
	if embedded.Text != "SELECT id FROM customers WHERE email = :1" {
		t.Errorf("embedded text = %q", embedded.Text)
	}
}

func TestScan_MissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestScanReader_Stdin(t *testing.T) {
	stmts, skipped, err := ScanReader(strings.NewReader("SELECT 1 FROM dual;\nDROP TABLE t;\nDELETE FROM t WHERE id = 1"), "-")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(stmts) != 2 {
		t.Fatalf("statements = %d, want 2", len(stmts))
	}
	if stmts[1].Text != "DELETE FROM t WHERE id = 1" || stmts[1].Line != 3 {
		t.Errorf("unterminated statement = %+v", stmts[1])
	}
}
