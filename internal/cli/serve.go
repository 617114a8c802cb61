package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"codegraph/config"
	"codegraph/internal/adapter/mcpserver"
	"codegraph/internal/bootstrap"
	"codegraph/internal/domain"
	"codegraph/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ask and health tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout. Tools:
  ask     {query, limit}  ranked code context with call relationships
  health  {}              index readiness and size

Without an index the server still starts: health reports not_ready and ask
fails until 'codegraph index' has run and the server is restarted.

The server keeps the index database open, so 'codegraph index' cannot run
against the same directory while it is up. Stop the server, index, then
start it again.

Logs go to stderr so they never interleave with the protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := serviceFor(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer closeFn()

	return mcpserver.New(svc, Version, GetConfig().Retrieve.Limit, nil).Serve()
}

// serviceFor opens the index under root, falling back to a not-ready service
// when there is no usable index yet.
func serviceFor(cfg *config.Config, root string) (mcpserver.Service, func() error, error) {
	a, err := bootstrap.Open(cfg, root, false)
	if errors.Is(err, domain.ErrIndexNotReady) {
		slog.Warn("serving without an index", "error", err)
		return usecase.Unindexed{Model: cfg.Embedding.Model}, func() error { return nil }, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return a.Asker(), a.Close, nil
}
