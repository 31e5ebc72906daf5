package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/config"
	"github.com/ppiankov/oraspectre/internal/logging"
)

var (
	dbURL     string
	driver    string
	logFormat string
	verbose   bool
	cfg       config.Config
)

// BuildInfo carries version metadata injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ExitError asks main to exit with Code. The report has already been
// written when it is returned.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

const (
	exitAnalysisFailed = 3
	exitFailOn         = 2
)

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "oraspectre",
		Short: "Oracle SQL index advisor",
		Long: "Parses Oracle SQL, finds the columns the optimizer needs indexed, " +
			"compares them with existing indexes and recommends CREATE INDEX statements.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(verbose, logFormat, cmd.ErrOrStderr())

			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			cfg, err = config.Load(cwd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.Debug("config loaded", "path", cwd, "connections", len(cfg.Connections))

			if dbURL != "" {
				cfg.SetConnection(config.Connection{ID: defaultConnection, Driver: driver, URL: dbURL})
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("--db-url: %w", err)
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbURL, "db-url", "", "metadata database URL for the \"default\" connection (or set ORASPECTRE_DB_URL)")
	root.PersistentFlags().StringVar(&driver, "driver", "oracle", "driver for --db-url: oracle or postgres")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newVersionCmd(info))
	root.AddCommand(newAnalyzeCmd(info))
	root.AddCommand(newBatchCmd(info))
	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())

	return root
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "oraspectre %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
		},
	}
}

// Execute runs the root command.
func Execute(version, commit, date string) error {
	return newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}).Execute()
}
