package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/reporter"
)

func newAnalyzeCmd(info BuildInfo) *cobra.Command {
	var (
		flags   analysisFlags
		sqlText string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "analyze [SQL]",
		Short: "Analyze one SQL statement and recommend indexes",
		Long: "Analyze one SELECT, UPDATE, DELETE or INSERT ... SELECT statement given as an argument, " +
			"with --sql, or read from --file (\"-\" for stdin).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := flags.outputFormat(cmd)
			if err != nil {
				return err
			}

			sql, source, err := readStatement(cmd.InOrStdin(), sqlText, file, args)
			if err != nil {
				return err
			}

			s, err := openSession(&flags)
			if err != nil {
				return err
			}
			defer s.Close()

			resp := s.engine.Analyze(cmd.Context(), s.request(&flags, sql))
			slog.Debug("analysis complete",
				"analysis_id", resp.Metadata.AnalysisID,
				"stage", resp.Metadata.Stage,
				"degraded", resp.Metadata.Degraded,
				"ms", resp.Metadata.ExecutionTimeMs)

			entries := []reporter.Entry{{Source: source, Response: resp}}
			return s.finish(cmd, &flags, "analyze", info, entries, format, true)
		},
	}

	cmd.Flags().StringVar(&sqlText, "sql", "", "SQL statement to analyze")
	cmd.Flags().StringVar(&file, "file", "", "read the statement from a file (\"-\" for stdin)")
	flags.register(cmd)

	return cmd
}

// readStatement returns the SQL text and a source label. Exactly one of
// --sql, --file and the positional argument must be given.
func readStatement(stdin io.Reader, sqlText, file string, args []string) (string, string, error) {
	given := 0
	for _, set := range []bool{sqlText != "", file != "", len(args) > 0} {
		if set {
			given++
		}
	}
	switch {
	case given == 0:
		return "", "", fmt.Errorf("a statement is required: pass it as an argument, with --sql, or with --file")
	case given > 1:
		return "", "", fmt.Errorf("--sql, --file and a positional statement are mutually exclusive")
	}

	switch {
	case sqlText != "":
		return sqlText, "", nil
	case len(args) > 0:
		return args[0], "", nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return trimTerminator(string(data)), "stdin", nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", fmt.Errorf("read %s: %w", file, err)
		}
		return trimTerminator(string(data)), file, nil
	}
}

// trimTerminator drops a trailing ";" or SQL*Plus "/" line.
func trimTerminator(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasSuffix(sql, "\n/") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, "/"))
	}
	return strings.TrimSpace(strings.TrimSuffix(sql, ";"))
}
