// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inis-qa/internal/apply"
	"github.com/pdiddy/inis-qa/internal/invenio"
)

var applyCmd = &cobra.Command{
	Use:   "apply [qa-reports-dir]",
	Short: "Apply trusted corrections to the live repository",
	Long: `Apply reads every QA report in the folder and pushes the trusted
correction kinds (title, affiliation, organizational author) back to the
repository through the draft-edit-publish flow, marking each record QA
checked. Without --apply it runs in dry-run mode and touches nothing
remote.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().Bool("apply", false, "actually publish changes (default is dry run)")
	applyCmd.Flags().String("live", "", "repository base URL (default https://inis.iaea.org)")
	applyCmd.Flags().String("token", "", "repository access token (default from .secrets/inis-access-token)")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	folder := "qa-results"
	if len(args) > 0 {
		folder = args[0]
	}
	live, _ := cmd.Flags().GetBool("apply")

	cfg := repositoryConfig(cmd)
	if live && cfg.Token == "" {
		return fmt.Errorf("applying changes requires an access token: pass --token or add .secrets/inis-access-token")
	}

	applier := &apply.Applier{
		Repo:   invenio.NewClient(cfg),
		DryRun: !live,
	}
	if err := applier.ProcessFolder(context.Background(), folder, os.Stdout); err != nil {
		return err
	}
	if applier.Stats.Errors > 0 {
		return fmt.Errorf("%d record(s) failed application", applier.Stats.Errors)
	}
	return nil
}
