package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCmd executes a CLI command with an isolated environment and returns
// stdout and the error.
func runCmd(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ORASPECTRE_DB_URL", "")
	t.Setenv("NO_COLOR", "1")

	cmd := newRootCmd(BuildInfo{Version: "test", Commit: "abc123", Date: "today"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.SetIn(stdin)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// exitCode returns the ExitError code of err, 0 for nil and -1 for any
// other error.
func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	t.Logf("non-exit error: %v", err)
	return -1
}

// writeFile creates a file in the given directory and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const ordersQuery = "SELECT * FROM orders o JOIN customers c ON o.cust_id = c.id WHERE o.status = 'OPEN'"

// coveredSnapshot indexes every column ordersQuery needs.
const coveredSnapshot = `indexes:
  ORDERS:
    - name: IX_ORDERS_STATUS
      columns: [STATUS]
    - name: IX_ORDERS_CUST_ID
      columns: [CUST_ID]
  CUSTOMERS:
    - name: PK_CUSTOMERS
      columns: [ID]
      unique: true
`
