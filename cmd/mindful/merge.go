package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/pathutil"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

type mergeOptions struct {
	entryType string
	out       string
}

func newMergeCmd(root *rootOptions) *cobra.Command {
	opts := &mergeOptions{}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Concatenate every entry of one journal type",
		Long: `Merge writes all entries of a journal type in natural file-name order
(2 before 10), separated by a rule line. By default the result is written to
` + journal.MergedFileName + ` inside the type's folder; that file is never
merged into itself. Use --out - to print to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.out == "-" {
				_, err := a.Journal.Merge(cmd.Context(), opts.entryType, cmd.OutOrStdout())
				return err
			}

			out := opts.out
			if out == "" {
				out, err = pathutil.JoinSegments(a.Root.JournalDir(), opts.entryType, journal.MergedFileName)
				if err != nil {
					return fmt.Errorf("invalid journal type %q: %w", opts.entryType, err)
				}
			}

			var buf bytes.Buffer
			n, err := a.Journal.Merge(cmd.Context(), opts.entryType, &buf)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %q entries to merge.\n", opts.entryType)
				return nil
			}
			if err := storage.WriteFileAtomic(out, buf.Bytes()); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d entries into %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.entryType, "type", "t", journal.DefaultType, "Journal type to merge")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file, or - for stdout")
	return cmd
}
