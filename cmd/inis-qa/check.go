// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inis-qa/internal/ai"
	"github.com/pdiddy/inis-qa/internal/check"
	"github.com/pdiddy/inis-qa/internal/invenio"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Review records with the AI backend and write QA reports",
	Long: `Check fetches records created on the given date that are not yet QA
checked, reviews each one with the configured AI backend, and writes one
<id>-report.json per record into the output directory. With --dir the
records are loaded from local JSON files instead of the repository.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("date", "", "creation date to fetch (YYYY-MM-DD, default yesterday)")
	checkCmd.Flags().String("dir", "", "review local record JSON files from this directory instead of fetching")
	checkCmd.Flags().String("live", "", "repository base URL (default https://inis.iaea.org)")
	checkCmd.Flags().String("out", "", "directory for QA report files (default qa-results)")
	checkCmd.Flags().String("instructions", "", "path to the QA instructions file (default instructions.txt)")
	checkCmd.Flags().String("provider", "", "AI provider: azure-openai or anthropic")
	checkCmd.Flags().String("model", "", "deployment or model identifier for the AI backend")
	checkCmd.Flags().Bool("verbose", false, "echo a truncated copy of each assistant reply")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	date, _ := cmd.Flags().GetString("date")
	dir, _ := cmd.Flags().GetString("dir")
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = viper.GetString("check.out_dir")
	}
	if outDir == "" {
		outDir = "qa-results"
	}
	verbose := flagOrBool(cmd, "verbose", "check.verbose")

	checker, err := newChecker(cmd, outDir, verbose)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var sources []check.Source
	if dir != "" {
		sources, err = check.LoadDir(dir, os.Stdout)
	} else {
		sources, err = checker.FetchRecordsByDate(ctx, date)
	}
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No records to check.")
		return nil
	}

	summary, err := checker.Run(ctx, sources, os.Stdout)
	fmt.Printf("Checked %d record(s): %d with findings, %d failed\n",
		summary.Total(), summary.Findings, summary.Errors)
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d record(s) failed QA check", summary.Errors)
	}
	return nil
}

func newChecker(cmd *cobra.Command, outDir string, verbose bool) (*check.Checker, error) {
	instructionsPath, _ := cmd.Flags().GetString("instructions")
	if instructionsPath == "" {
		instructionsPath = viper.GetString("check.instructions_path")
	}
	if instructionsPath == "" {
		instructionsPath = "instructions.txt"
	}

	aiCfg := aiConfig(cmd)
	backend, err := ai.New(aiCfg, check.LoadInstructions(instructionsPath))
	if err != nil {
		return nil, err
	}

	return &check.Checker{
		Repo:       invenio.NewClient(repositoryConfig(cmd)),
		AI:         backend,
		OutDir:     outDir,
		MaxRetries: aiCfg.MaxRetries,
		Verbose:    verbose,
	}, nil
}
