// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inis-qa/internal/report"
	"github.com/pdiddy/inis-qa/pkg/types"
)

const (
	defaultBaseURL    = "https://inis.iaea.org"
	defaultUserAgent  = "inis-qa/0.1"
	defaultEndpoint   = "https://pdf2json.openai.azure.com/"
	defaultDeployment = "o4-mini"
	defaultAPIVersion = "2025-01-01-preview"
	defaultAITimeout  = 120 * time.Second
	defaultSMTPHost   = "smtp.gmail.com"
	defaultSMTPPort   = 587
	defaultRunLogPath = "inis-qa-runs.db"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the inis-qa configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default inis-qa.yaml in the current directory",
	Long: `Init writes a commented starting configuration to ./inis-qa.yaml.
Existing files are never overwritten. Credentials belong in .secrets/,
not in the config file.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	const path = "inis-qa.yaml"
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	cfg := defaultPipelineConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func defaultPipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Repository: types.RepositoryConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: defaultUserAgent,
			},
			BaseURL:    defaultBaseURL,
			MaxRetries: 3,
		},
		Check: types.CheckConfig{
			AIConfig: types.AIConfig{
				Provider:   types.ProviderAzureOpenAI,
				Endpoint:   defaultEndpoint,
				Deployment: defaultDeployment,
				APIVersion: defaultAPIVersion,
				MaxRetries: 3,
				Timeout:    defaultAITimeout,
			},
			InstructionsPath: "instructions.txt",
			OutDir:           "qa-results",
		},
		Correction: types.CorrectionConfig{
			OutputDir: "corrected-records",
		},
		Email: types.EmailConfig{
			SMTPHost: defaultSMTPHost,
			SMTPPort: defaultSMTPPort,
			To:       report.DefaultRecipient,
		},
		RunLogPath: defaultRunLogPath,
	}
}

// repositoryConfig builds the repository client settings from the command's
// flags, the config file, and loaded secrets, in that precedence order.
func repositoryConfig(cmd *cobra.Command) types.RepositoryConfig {
	baseURL, _ := cmd.Flags().GetString("live")
	if baseURL == "" {
		baseURL = viper.GetString("repository.base_url")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = viper.GetString("repository.token")
	}
	token = secretDefault("inis-access-token", token)

	maxRetries := viper.GetInt("repository.max_retries")
	if maxRetries == 0 {
		maxRetries = 3
	}

	return types.RepositoryConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: defaultUserAgent,
		},
		BaseURL:    baseURL,
		Token:      token,
		MaxRetries: maxRetries,
	}
}

// aiConfig builds the completion backend settings. The API key comes from
// .secrets/azure-openai-api-key or .secrets/anthropic-api-key depending on
// the provider.
func aiConfig(cmd *cobra.Command) types.AIConfig {
	provider := types.AIProvider(viper.GetString("check.provider"))
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		provider = types.AIProvider(p)
	}
	if provider == "" {
		provider = types.ProviderAzureOpenAI
	}

	endpoint := viper.GetString("check.endpoint")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	deployment := viper.GetString("check.deployment")
	if d, _ := cmd.Flags().GetString("model"); d != "" {
		deployment = d
	}
	if deployment == "" && provider == types.ProviderAzureOpenAI {
		deployment = defaultDeployment
	}
	apiVersion := viper.GetString("check.api_version")
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	keyName := "azure-openai-api-key"
	if provider == types.ProviderAnthropic {
		keyName = "anthropic-api-key"
	}
	apiKey := secretDefault(keyName, viper.GetString("check.api_key"))

	maxRetries := viper.GetInt("check.max_retries")
	if maxRetries == 0 {
		maxRetries = 3
	}

	return types.AIConfig{
		Provider:   provider,
		Endpoint:   endpoint,
		Deployment: deployment,
		APIVersion: apiVersion,
		APIKey:     apiKey,
		MaxRetries: maxRetries,
		Timeout:    defaultAITimeout,
	}
}

// emailConfig builds SMTP settings. The app password comes from
// .secrets/email-app-password.
func emailConfig() types.EmailConfig {
	host := viper.GetString("email.smtp_host")
	if host == "" {
		host = defaultSMTPHost
	}
	port := viper.GetInt("email.smtp_port")
	if port == 0 {
		port = defaultSMTPPort
	}

	return types.EmailConfig{
		SMTPHost:    host,
		SMTPPort:    port,
		From:        viper.GetString("email.from"),
		To:          viper.GetString("email.to"),
		AppPassword: secretDefault("email-app-password", viper.GetString("email.app_password")),
	}
}

// flagOrBool returns the boolean flag when set, falling back to the
// config-file key so yaml settings are not silent no-ops.
func flagOrBool(cmd *cobra.Command, name, key string) bool {
	if v, _ := cmd.Flags().GetBool(name); v {
		return true
	}
	return viper.GetBool(key)
}

func runLogPath() string {
	if p := viper.GetString("run_log_path"); p != "" {
		return p
	}
	return defaultRunLogPath
}
