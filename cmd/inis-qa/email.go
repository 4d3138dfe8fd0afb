// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inis-qa/internal/report"
)

var emailCmd = &cobra.Command{
	Use:   "email [qa-reports-dir]",
	Short: "Email the daily QA summary report",
	Long: `Email aggregates every QA report in the folder into a plain-text
summary, zips the report files, and sends both to the configured
recipient over SMTP. The sender address and app password come from the
config file and .secrets/email-app-password.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmail,
}

func init() {
	emailCmd.Flags().String("date", "", "date the report covers (YYYY-MM-DD)")

	rootCmd.AddCommand(emailCmd)
}

func runEmail(cmd *cobra.Command, args []string) error {
	folder := "qa-results"
	if len(args) > 0 {
		folder = args[0]
	}
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}

	if err := report.SendQAReport(folder, emailConfig(), date); err != nil {
		return err
	}
	fmt.Println("QA report email sent.")
	return nil
}
