// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "inis-qa/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RepositoryConfig holds settings for the INIS records API.
type RepositoryConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the repository root (e.g. "https://inis.iaea.org").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the bearer access token for draft and publish operations.
	// Search and record reads work without one.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// MaxRetries bounds retries on rate-limited search requests (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AIProvider selects the completion backend.
type AIProvider string

const (
	ProviderAzureOpenAI AIProvider = "azure-openai"
	ProviderAnthropic   AIProvider = "anthropic"
)

// AIConfig holds settings for the language-model completion API.
type AIConfig struct {
	// Provider selects the backend: azure-openai (default) or anthropic.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Endpoint is the Azure OpenAI resource URL
	// (e.g. "https://pdf2json.openai.azure.com/"). Ignored by anthropic.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Deployment is the Azure deployment name, or the model identifier
	// for the anthropic provider.
	Deployment string `json:"deployment" yaml:"deployment"`

	// APIVersion is the Azure API version query parameter.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts after the initial call
	// on transient errors (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the per-request timeout (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CheckConfig holds settings for the QA checking stage.
type CheckConfig struct {
	AIConfig `yaml:",inline"`

	// InstructionsPath is the plain-text file holding the QA system
	// prompt. A missing file falls back to a built-in stub.
	InstructionsPath string `json:"instructions_path" yaml:"instructions_path"`

	// OutDir is the directory QA report files are written to.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Verbose echoes a truncated copy of each assistant reply.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// CorrectionConfig holds settings for the correction processing stage.
type CorrectionConfig struct {
	// OutputDir is the directory corrected-record snapshots and the run
	// statistics file are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// CreatePackage also writes an upload_package/ directory of bare
	// corrected records after processing.
	CreatePackage bool `json:"create_package" yaml:"create_package"`
}

// EmailConfig holds SMTP settings for the summary report.
type EmailConfig struct {
	// SMTPHost is the mail server hostname (default "smtp.gmail.com").
	SMTPHost string `json:"smtp_host" yaml:"smtp_host"`

	// SMTPPort is the submission port; STARTTLS is negotiated (default 587).
	SMTPPort int `json:"smtp_port" yaml:"smtp_port"`

	// From is the sender address, also used as the SMTP username.
	From string `json:"from" yaml:"from"`

	// To is the recipient address (default "inis.feedback@iaea.org").
	To string `json:"to" yaml:"to"`

	// AppPassword is the SMTP app password for From.
	AppPassword string `json:"app_password,omitempty" yaml:"app_password,omitempty"`
}

// PipelineConfig groups all stage configurations. It is built once at
// process start from flags, config file, and secrets, then passed by value
// into each stage; stages never read the environment themselves.
type PipelineConfig struct {
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Check      CheckConfig      `json:"check" yaml:"check"`
	Correction CorrectionConfig `json:"correction" yaml:"correction"`
	Email      EmailConfig      `json:"email" yaml:"email"`

	// RunLogPath is the SQLite file recording pipeline run history.
	RunLogPath string `json:"run_log_path" yaml:"run_log_path"`
}
