package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
	mcpserver "github.com/ziadkadry99/d365-plugin-assistant/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the catalog resolvers and image advice as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		stage, err := advisory.ParseStage(cfg.Stage)
		if err != nil {
			return err
		}

		// Field disambiguation is optional; without a key the tools still resolve.
		var oracle llm.Oracle
		if o, _, err := createOracles(cfg); err != nil {
			logger.Warn("no language model available, ambiguous fields are returned as is", zap.Error(err))
		} else {
			oracle = o
		}

		cat := catalog.NewStore(cfg.CatalogDir, logger.Named("catalog"))
		tables := cachedTables(cat, logger)

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger.Info("pluginassist MCP server started on stdio",
			zap.String("catalog", cfg.CatalogDir),
			zap.Int("cached_tables", tables),
		)

		srv := mcpserver.NewServer(cat, oracle, stage)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
