package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inis-qa/internal/runlog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past pipeline runs from the local run log",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := runlog.NewStore(runLogPath())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-19s  %-7s  %-9s  %-7s  %-6s  %-6s  %s\n",
		"ID", "Date", "Started", "Checked", "Corrected", "Applied", "Email", "Errors", "Status")
	for _, r := range runs {
		email := "no"
		if r.EmailSent {
			email = "yes"
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-19s  %-7d  %-9d  %-7d  %-6s  %-6d  %s\n",
			r.ID, r.Date, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.RecordsChecked, r.RecordsCorrected, r.RecordsApplied,
			email, r.Errors, r.Status)
	}
	return nil
}
