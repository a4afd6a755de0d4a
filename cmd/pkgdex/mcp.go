package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpTransport "github.com/kailas-cloud/pkgdex/internal/transport/mcp"
)

func newMCPCmd(rt *runtimeEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search_packages tool over MCP stdio",
		Long: `Serve the search_packages tool over the Model Context Protocol on
stdin/stdout. Logs go to stderr so they never corrupt the JSON-RPC stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, &rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer a.Close()

			srv, err := mcpTransport.NewServer(a.search, rt.logger.Named("mcp"))
			if err != nil {
				return err
			}
			return srv.ServeStdio(ctx)
		},
	}
}
