package cli

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/engine"
	"github.com/ppiankov/oraspectre/internal/reporter"
	"github.com/ppiankov/oraspectre/internal/scanner"
)

func newBatchCmd(info BuildInfo) *cobra.Command {
	var (
		flags        analysisFlags
		dir          string
		file         string
		includeCode  bool
		ignoreErrors bool
		parallel     int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every statement in a SQL script or source tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (dir == "") == (file == "") {
				return fmt.Errorf("exactly one of --dir and --file is required")
			}
			format, err := flags.outputFormat(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallel") && cfg.Defaults.Parallel > 0 {
				parallel = cfg.Defaults.Parallel
			}

			stmts, err := collectStatements(cmd, dir, file, includeCode, parallel)
			if err != nil {
				return err
			}

			s, err := openSession(&flags)
			if err != nil {
				return err
			}
			defer s.Close()

			reqs := make([]engine.Request, len(stmts))
			for i, st := range stmts {
				reqs[i] = s.request(&flags, st.Text)
			}
			workers := parallel
			if workers <= 0 {
				workers = runtime.NumCPU()
			}
			responses := s.engine.AnalyzeBatch(cmd.Context(), reqs, workers)

			entries := make([]reporter.Entry, len(stmts))
			for i, st := range stmts {
				entries[i] = reporter.Entry{Source: st.File, Line: st.Line, Response: responses[i]}
			}
			return s.finish(cmd, &flags, "batch", info, entries, format, !ignoreErrors)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of SQL scripts to analyze")
	cmd.Flags().StringVar(&file, "file", "", "single SQL script to analyze (\"-\" for stdin)")
	cmd.Flags().BoolVar(&includeCode, "include-code", false, "also extract SQL string literals from application source files")
	cmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "do not exit 3 when some statements fail to analyze")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of scanner and analysis goroutines (0=NumCPU, 1=sequential)")
	flags.register(cmd)

	return cmd
}

// collectStatements scans the input and drops statements marked with an
// inline ignore comment.
func collectStatements(cmd *cobra.Command, dir, file string, includeCode bool, parallel int) ([]scanner.Statement, error) {
	var (
		stmts   []scanner.Statement
		skipped int
	)
	switch {
	case dir != "":
		slog.Debug("scanning directory", "path", dir)
		result, err := scanner.ScanParallel(dir, scanner.Options{IncludeCode: includeCode}, parallel)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		slog.Info("scan complete",
			"files", result.FilesScanned,
			"skipped_files", result.FilesSkipped,
			"statements", len(result.Statements))
		stmts, skipped = result.Statements, result.SkippedStatements
	case file == "-":
		var err error
		stmts, skipped, err = scanner.ScanReader(cmd.InOrStdin(), "-")
		if err != nil {
			return nil, fmt.Errorf("scan stdin: %w", err)
		}
	default:
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file, err)
		}
		defer func() { _ = f.Close() }()
		stmts, skipped, err = scanner.ScanReader(f, file)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", file, err)
		}
	}
	if skipped > 0 {
		slog.Debug("non-analysable statements skipped", "count", skipped)
	}

	out := stmts[:0]
	for _, st := range stmts {
		if st.Ignored {
			slog.Debug("statement ignored", "file", st.File, "line", st.Line)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}
