// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the inis-qa CLI.
//
// The pipeline stages are subcommands: check, correct, email, and apply.
// The run subcommand composes them into the daily automation workflow,
// and history lists past runs from the local run log.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inis-qa/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault resolves a credential against the loaded secrets, letting
// a non-empty flag or config value win.
func secretDefault(key, fallback string) string {
	return secrets.Resolve(loadedSecrets, key, fallback)
}

// rootCmd is the base command for the inis-qa CLI.
var rootCmd = &cobra.Command{
	Use:   "inis-qa",
	Short: "Daily QA automation for INIS bibliographic records",
	Long: `inis-qa automates daily quality assurance of INIS bibliographic records.
It fetches newly created records from the repository, reviews each one with
an AI backend, applies trusted corrections, emails a summary report, and
optionally publishes the corrected records back to the repository.

Each pipeline stage is a subcommand: check, correct, email, and apply.
The run subcommand executes the full daily workflow for one date.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./inis-qa.yaml or ~/.config/inis-qa/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("inis-qa")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "inis-qa"))
		}
	}

	viper.SetEnvPrefix("INIS_QA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
