package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/export"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <out.csv> <part.csv> [part.csv...]",
	Short: "Merge partial lead CSVs from parallel workers",
	Long:  "Concatenates partial CSVs into one file, dropping duplicates by company+address and additionally by phone and email, which catches the same business surfaced by different providers under different name spellings.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := export.MergeCSVFiles(args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("%d unique leads written to %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
