package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/scanner"
)

func newScanCmd() *cobra.Command {
	var (
		dir         string
		format      string
		includeCode bool
		parallel    int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the analysable SQL statements in a directory (no database required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}

			// Use config format as default if flag not explicitly set
			if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
				format = cfg.Defaults.Format
			}

			slog.Debug("scanning directory", "path", dir)
			result, err := scanner.ScanParallel(dir, scanner.Options{IncludeCode: includeCode}, parallel)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			slog.Info("scan complete",
				"files", result.FilesScanned,
				"skipped", result.FilesSkipped,
				"statements", len(result.Statements))

			return writeScanResult(cmd.OutOrStdout(), &result, format)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to scan (required)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().BoolVar(&includeCode, "include-code", false, "also extract SQL string literals from application source files")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of scanner goroutines (0=NumCPU, 1=sequential)")

	return cmd
}

func writeScanResult(w io.Writer, result *scanner.ScanResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writeScanResultText(w, result)
}

func writeScanResultText(w io.Writer, result *scanner.ScanResult) error {
	if len(result.Statements) == 0 {
		_, err := fmt.Fprintln(w, "No analysable statements found.")
		return err
	}

	_, _ = fmt.Fprintf(w, "Statements (%d):\n", len(result.Statements))
	for _, st := range result.Statements {
		loc := fmt.Sprintf("%s:%d", st.File, st.Line)
		mark := ""
		if st.Ignored {
			mark = " (ignored)"
		}
		_, _ = fmt.Fprintf(w, "  %-30s [%s] %s%s\n", loc, st.Origin, firstLine(st.Text, 60), mark)
	}

	_, err := fmt.Fprintf(w, "\nSummary: %d statements, %d skipped, in %d files\n",
		len(result.Statements), result.SkippedStatements, result.FilesScanned)
	return err
}

// firstLine returns the first line of text, cut to max runes.
func firstLine(text string, max int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	r := []rune(text)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return text
}
