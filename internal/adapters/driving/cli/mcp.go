package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docqa/internal/app"
)

var (
	mcpAddr  string
	mcpFiles []string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve streamable HTTP instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Tools: ask, retrieve, ingest.
Resources: docqa://sessions/{sessionId}, docqa://metrics/summary.

Examples:
  # Stdio mode (default, for Claude Desktop)
  docqa mcp --file handbook.pdf

  # HTTP mode (for MCP Inspector, remote access)
  docqa mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp", "--file", "/path/to/handbook.pdf"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.Flags().StringArrayVarP(&mcpFiles, "file", "f", nil, "TXT or PDF file to index first (repeatable)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, mcpFiles); err != nil {
			return err
		}

		server, err := mcp.NewServer(&mcp.Ports{
			Chat:      a.Chat,
			Retrieval: a.Retrieval,
			Ingest:    a.Ingest,
			Metrics:   a.Metrics,
			Options:   a.Settings.Retrieval.Options(),
		})
		if err != nil {
			return err
		}

		if mcpAddr != "" {
			cmd.PrintErrf("MCP server listening on http://%s\n", displayAddr(mcpAddr))
			return server.RunHTTP(cmd.Context(), mcpAddr)
		}
		return server.Run(cmd.Context())
	})
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
