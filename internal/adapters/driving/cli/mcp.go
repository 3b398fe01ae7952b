package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query
the knowledge base.

Tools:
  search    - similar passages from the vector index
  retrieve  - matching domains plus passages they do not already cover

Resources:
  kb://overview          - corpus overview (markdown)
  kb://domains           - all domains (JSON)
  kb://domains/{label}   - one domain (JSON)

By default the server talks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead.

Examples:
  sercha-kb mcp serve
  sercha-kb mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if indexService == nil {
		return errors.New("index service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Index:       indexService,
		Retrieval:   retrievalService,
		Compression: compressionService,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
