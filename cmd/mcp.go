package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/opsdesk/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Tools act on the server at server_url, so 'opsdesk serve' must be
running. Configure an MCP client with:

  {
    "mcpServers": {
      "opsdesk": { "command": "opsdesk", "args": ["mcp"] }
    }
  }

Available tools: opsdesk_list_issues, opsdesk_get_issue,
opsdesk_create_issue, opsdesk_update_issue, opsdesk_add_comment,
opsdesk_delete_issue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s, buildVersion).ServeStdio(orBackground(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
