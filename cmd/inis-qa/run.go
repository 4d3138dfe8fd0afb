// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inis-qa/internal/apply"
	"github.com/pdiddy/inis-qa/internal/correct"
	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/internal/report"
	"github.com/pdiddy/inis-qa/internal/runlog"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full daily QA automation workflow",
	Long: `Run executes the daily workflow for one date: check records, process
corrections, email the summary report, then apply trusted corrections to
the repository. Results land in dated directories (QAResults-<date>,
QAChecked-<date>).

Live application is enabled automatically when a repository access token
is configured; --apply-corrections and --no-apply-corrections override
that. A checker failure aborts the run; failures in later phases are
reported but do not stop the remaining phases. The summary email goes
out before any changes are applied.`,
	RunE: runDaily,
}

func init() {
	runCmd.Flags().String("date", "", "date to process (YYYY-MM-DD, default yesterday)")
	runCmd.Flags().String("qa-dir", "qa-results", "base directory for dated QA report directories")
	runCmd.Flags().String("corrected-dir", "corrected-records", "base directory for dated corrected-record directories")
	runCmd.Flags().String("live", "", "repository base URL (default https://inis.iaea.org)")
	runCmd.Flags().String("token", "", "repository access token (default from .secrets/inis-access-token)")
	runCmd.Flags().Bool("qa-only", false, "run only the QA checking phase")
	runCmd.Flags().Bool("corrections-only", false, "run only the correction processing phase")
	runCmd.Flags().Bool("apply-only", false, "run only the live correction application phase")
	runCmd.Flags().Bool("email-only", false, "run only the email phase")
	runCmd.Flags().Bool("apply-corrections", false, "force enable live correction application")
	runCmd.Flags().Bool("no-apply-corrections", false, "disable live correction application")
	runCmd.MarkFlagsMutuallyExclusive("qa-only", "corrections-only", "apply-only", "email-only")
	runCmd.MarkFlagsMutuallyExclusive("apply-corrections", "no-apply-corrections")

	rootCmd.AddCommand(runCmd)
}

func runDaily(cmd *cobra.Command, args []string) error {
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}

	qaBase, _ := cmd.Flags().GetString("qa-dir")
	correctedBase, _ := cmd.Flags().GetString("corrected-dir")
	qaDir := filepath.Join(qaBase, "QAResults-"+date)
	correctedDir := filepath.Join(correctedBase, "QAChecked-"+date)

	cfg := repositoryConfig(cmd)

	run := runlog.Run{
		Date:      date,
		StartedAt: time.Now(),
		Status:    runlog.StatusOK,
	}
	defer func() {
		run.FinishedAt = time.Now()
		recordRun(run)
	}()

	ctx := context.Background()

	switch {
	case flagBool(cmd, "qa-only"):
		return runStep(&run, checkPhase(ctx, cmd, qaDir, &run))
	case flagBool(cmd, "corrections-only"):
		return runStep(&run, correctionsPhase(ctx, cmd, qaDir, correctedDir, &run))
	case flagBool(cmd, "email-only"):
		return runStep(&run, emailPhase(qaDir, date, &run))
	case flagBool(cmd, "apply-only"):
		return runStep(&run, applyPhase(ctx, cmd, qaDir, true, &run))
	}

	applyChanges := cfg.Token != ""
	if flagBool(cmd, "apply-corrections") {
		applyChanges = true
	}
	if flagBool(cmd, "no-apply-corrections") {
		applyChanges = false
	}
	if applyChanges {
		fmt.Println("Access token found - correction application enabled")
	} else {
		fmt.Println("No access token - correction application disabled")
	}

	fmt.Printf("Starting daily QA automation for %s\n", date)

	if err := checkPhase(ctx, cmd, qaDir, &run); err != nil {
		run.Status = runlog.StatusFailed
		run.Errors++
		return fmt.Errorf("QA checker failed, aborting: %w", err)
	}

	ok := true
	if err := correctionsPhase(ctx, cmd, qaDir, correctedDir, &run); err != nil {
		fmt.Fprintf(os.Stderr, "Correction processing failed, continuing: %v\n", err)
		run.Errors++
		ok = false
	}

	// The summary email goes out before anything is published so it
	// always describes the pre-correction state of the records.
	if err := emailPhase(qaDir, date, &run); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send daily report: %v\n", err)
		run.Errors++
		ok = false
	}

	if err := applyPhase(ctx, cmd, qaDir, applyChanges, &run); err != nil {
		fmt.Fprintf(os.Stderr, "Correction application failed: %v\n", err)
		run.Errors++
		ok = false
	}

	if !ok {
		run.Status = runlog.StatusFailed
		return fmt.Errorf("daily QA automation completed with errors")
	}
	fmt.Println("Daily QA automation completed successfully")
	return nil
}

func checkPhase(ctx context.Context, cmd *cobra.Command, qaDir string, run *runlog.Run) error {
	checker, err := newChecker(cmd, qaDir, false)
	if err != nil {
		return err
	}
	sources, err := checker.FetchRecordsByDate(ctx, run.Date)
	if err != nil {
		return err
	}
	summary, err := checker.Run(ctx, sources, os.Stdout)
	run.RecordsChecked = summary.Total()
	run.Errors += summary.Errors
	return err
}

func correctionsPhase(ctx context.Context, cmd *cobra.Command, qaDir, correctedDir string, run *runlog.Run) error {
	reports, err := correct.FindReports(qaDir)
	if err != nil {
		return err
	}
	processor := &correct.Processor{
		Repo:   invenio.NewClient(repositoryConfig(cmd)),
		OutDir: correctedDir,
	}
	corrected, err := processor.ProcessReports(ctx, reports, os.Stdout)
	run.RecordsCorrected = corrected
	run.Errors += processor.Stats.Errors
	return err
}

func emailPhase(qaDir, date string, run *runlog.Run) error {
	if err := report.SendQAReport(qaDir, emailConfig(), date); err != nil {
		return err
	}
	run.EmailSent = true
	return nil
}

func applyPhase(ctx context.Context, cmd *cobra.Command, qaDir string, applyChanges bool, run *runlog.Run) error {
	cfg := repositoryConfig(cmd)
	if applyChanges && cfg.Token == "" {
		return fmt.Errorf("applying changes requires an access token")
	}
	applier := &apply.Applier{
		Repo:   invenio.NewClient(cfg),
		DryRun: !applyChanges,
	}
	if err := applier.ProcessFolder(ctx, qaDir, os.Stdout); err != nil {
		return err
	}
	run.RecordsApplied = applier.Stats.RecordsUpdated
	run.Errors += applier.Stats.Errors
	return nil
}

// runStep wraps a single-phase invocation so the run log still reflects
// failures of --qa-only style runs.
func runStep(run *runlog.Run, err error) error {
	if err != nil {
		run.Status = runlog.StatusFailed
		run.Errors++
	}
	return err
}

func recordRun(run runlog.Run) {
	store, err := runlog.NewStore(runLogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run log: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.RecordRun(context.Background(), run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
	}
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
