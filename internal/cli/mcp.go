package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/mcp"
	"github.com/dgallion1/studykit/internal/version"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run a Model Context Protocol server over the sections and banks",
	Long: `Mcp serves the tools list_sections, get_section, search_sections,
list_problems and random_quiz over stdio, or over streamable HTTP with --http.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := kb.Open(cfg.IndexPath, cfg.SectionsDir)
		if err != nil {
			return err
		}
		s := mcp.NewServer(&mcp.Tools{
			KB:      store,
			Builder: newBuilder(),
			Log:     logger,
		}, version.Version)

		if mcpHTTPAddr != "" {
			logger.Info("starting mcp server", "addr", mcpHTTPAddr)
			return server.NewStreamableHTTPServer(s).Start(mcpHTTPAddr)
		}
		logger.Info("starting mcp server on stdio")
		return server.ServeStdio(s)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "Serve streamable HTTP on this address (e.g. ':8091') instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
