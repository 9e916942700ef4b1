package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stores as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			srv, err := a.MCPServer()
			if err != nil {
				return err
			}
			return server.ServeStdio(srv, server.WithErrorLogger(zap.NewStdLog(a.Logger.Named("mcp"))))
		},
	}
}
