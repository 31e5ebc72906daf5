package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/oraspectre/internal/engine"
	"github.com/ppiankov/oraspectre/internal/metadata"
	"github.com/ppiankov/oraspectre/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		listen   string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("listen") && cfg.Defaults.Listen != "" {
				listen = cfg.Defaults.Listen
			}
			if !cmd.Flags().Changed("parallel") && cfg.Defaults.Parallel > 0 {
				parallel = cfg.Defaults.Parallel
			}

			registry := metadata.NewRegistry(cfg.MetadataConnections(), nil)
			defer func() { _ = registry.Close() }()

			eng := engine.New(registry,
				engine.WithScoring(cfg.ScoringConfig()),
				engine.WithFetchTimeout(cfg.TimeoutDuration()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(server.Config{
				Engine:      eng,
				Addr:        listen,
				Connections: registry.IDs(),
				Parallel:    parallel,
			}).Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "address to listen on")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "analyses in flight per batch request (0=unbounded)")

	return cmd
}
