package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "docchat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document search tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pipeline, err := createPipelineFromConfig(cfg)
		if err != nil {
			return err
		}

		if err := pipeline.Load(context.Background(), cfg.Index.Dir); err != nil {
			// Log warning but continue. The index may be empty if ingest hasn't run yet.
			fmt.Fprintf(os.Stderr, "Warning: could not load index from %s: %v\n", cfg.Index.Dir, err)
			fmt.Fprintf(os.Stderr, "Search results will be empty. Run `docchat ingest` first.\n")
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "docchat MCP server started on stdio (index=%s, chunks=%d)\n", cfg.Index.Dir, pipeline.Size())

		srv := mcpserver.NewServer(pipeline)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
