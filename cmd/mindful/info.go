package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the data folder and list file statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := a.Root.Info()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "Data folder: %s\n", info.DataFolder)
			fmt.Fprintf(out, "Storage:     %s\n", a.Config.Storage.Backend)
			fmt.Fprintf(out, "List files:  %d\n", info.FileCount)
			fmt.Fprintf(out, "Total size:  %d bytes\n", info.TotalSize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
