package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	affectmcp "github.com/elara-ai/affect/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  get_mood            — current mood with decay applied
  adjust_mood         — nudge the mood by deltas
  set_mood            — overwrite mood dimensions
  create_imprint      — record a lingering feeling
  get_imprints        — list active imprints
  resolve_emotions    — map a vector to named emotions
  recall              — mood-congruent memory retrieval
  temperament_status  — baseline drift readout

If the semantic index is unavailable at startup the server still starts;
the recall tool degrades on a per-call basis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			c, err := newCore(logger)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer c.Close()

			idx, idxErr := newIndex(logger)
			if idxErr != nil {
				// Log to stderr and continue without an index.
				// The recall tool will report degraded results.
				logger.Error("mcp: semantic index unavailable; recall will be degraded", "error", idxErr)
			}
			if idx != nil {
				defer func() { _ = idx.Close() }()
			}

			srv := affectmcp.NewServer(c.engine, c.ledger, c.temperament, newRanker(idx, c.engine, logger), logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: elara-affect MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
