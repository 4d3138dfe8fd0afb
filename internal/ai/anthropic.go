// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/inis-qa/internal/httputil"
	"github.com/pdiddy/inis-qa/pkg/types"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Anthropic reviews records through the Anthropic Messages API.
type Anthropic struct {
	Model        string
	Instructions string
	client       anthropic.Client
}

// NewAnthropic builds the backend from configuration. Deployment names
// the model; empty selects a default.
func NewAnthropic(cfg types.AIConfig) *Anthropic {
	model := cfg.Deployment
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		Model:  model,
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
	}
}

// Review sends the record JSON with the review instructions and returns
// the model reply text.
func (b *Anthropic) Review(ctx context.Context, record []byte) (string, error) {
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.Model),
		MaxTokens: maxCompletionTokens,
		System: []anthropic.TextBlockParam{
			{Text: b.Instructions},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(string(record))),
		},
	})
	if err != nil {
		err = fmt.Errorf("Anthropic API error: %w", err)
		var apiErr *anthropic.Error
		if !errors.As(err, &apiErr) || httputil.Retryable(apiErr.StatusCode) {
			return "", Transient(err)
		}
		return "", err
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
