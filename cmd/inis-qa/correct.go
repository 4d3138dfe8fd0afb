// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inis-qa/internal/correct"
	"github.com/pdiddy/inis-qa/internal/invenio"
)

var correctCmd = &cobra.Command{
	Use:   "correct [qa-reports-dir]",
	Short: "Apply QA-report corrections and write corrected-record snapshots",
	Long: `Correct reads every *-report.json in the QA reports directory, fetches
each referenced record, applies the automatic corrections, and writes a
<id>_corrected.json snapshot per corrected record plus a run statistics
file. With --create-package it also writes an upload_package/ directory
of bare corrected records.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCorrect,
}

func init() {
	correctCmd.Flags().String("live", "", "repository base URL (default https://inis.iaea.org)")
	correctCmd.Flags().String("output-dir", "", "directory for snapshots and statistics (default corrected-records)")
	correctCmd.Flags().Bool("create-package", false, "also write an upload_package/ of bare corrected records")

	rootCmd.AddCommand(correctCmd)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	qaDir := "qa-results"
	if len(args) > 0 {
		qaDir = args[0]
	}
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = viper.GetString("correction.output_dir")
	}
	if outDir == "" {
		outDir = "corrected-records"
	}

	reports, err := correct.FindReports(qaDir)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Printf("No QA reports found in %s.\n", qaDir)
		return nil
	}

	processor := &correct.Processor{
		Repo:   invenio.NewClient(repositoryConfig(cmd)),
		OutDir: outDir,
	}

	corrected, err := processor.ProcessReports(context.Background(), reports, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d report(s): %d record(s) corrected, %d error(s)\n",
		processor.Stats.RecordsProcessed, corrected, processor.Stats.Errors)

	if flagOrBool(cmd, "create-package", "correction.create_package") {
		pkgDir, err := processor.CreateUploadPackage()
		if err != nil {
			return err
		}
		fmt.Printf("Upload package written to %s\n", pkgDir)
	}

	if processor.Stats.Errors > 0 {
		return fmt.Errorf("%d report(s) failed correction processing", processor.Stats.Errors)
	}
	return nil
}
