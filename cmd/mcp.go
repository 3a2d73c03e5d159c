package cmd

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/shopagent/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing product search, shop information, web search and the full ask flow to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(context.Background(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		documents := 0
		if a.index != nil {
			documents = a.index.Count()
		}
		log.Info("shopagent MCP server started on stdio", "documents", documents)

		srv := mcpserver.NewServer(a.toolbox, a.executor)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
