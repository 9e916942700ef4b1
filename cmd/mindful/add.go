package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/mindful-journal/internal/intake"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

func newAddCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add KIND",
		Short: "Append an item read as a JSON object from stdin",
		Long: `Add reads one JSON object from stdin and appends it to the active
goals or tasks list, exactly like POST /api/KIND/active.

  echo '{"id":"t1","text":"water plants"}' | mindful add tasks`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(storage.KindGoals), string(storage.KindTasks)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := storage.ParseKind(args[0])
			if err != nil {
				return err
			}
			item, err := intake.ReadItem(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading item from stdin: %w", err)
			}

			a, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Lists.Add(cmd.Context(), kind, item); err != nil {
				return err
			}
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added to active %s: %s\n", kind, data)
			return nil
		},
	}
}
