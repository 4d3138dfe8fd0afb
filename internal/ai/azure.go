// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/inis-qa/internal/httputil"
	"github.com/pdiddy/inis-qa/pkg/types"
)

const maxCompletionTokens = 10240

// AzureOpenAI reviews records through an Azure OpenAI chat-completions
// deployment.
type AzureOpenAI struct {
	Endpoint     string
	Deployment   string
	APIVersion   string
	APIKey       string
	Instructions string
	HTTP         *http.Client
}

// NewAzureOpenAI builds the backend from configuration.
func NewAzureOpenAI(cfg types.AIConfig) *AzureOpenAI {
	return &AzureOpenAI{
		Endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		Deployment: cfg.Deployment,
		APIVersion: cfg.APIVersion,
		APIKey:     cfg.APIKey,
		HTTP:       &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	MaxTokens      int            `json:"max_completion_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Review sends the record JSON with the review instructions and returns
// the model reply text.
func (b *AzureOpenAI) Review(ctx context.Context, record []byte) (string, error) {
	reqBody := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: b.Instructions},
			{Role: "user", Content: string(record)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		MaxTokens:      maxCompletionTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		b.Endpoint, url.PathEscape(b.Deployment), url.QueryEscape(b.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.APIKey)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("Azure OpenAI API error: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Transient(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Azure OpenAI API error: HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		if httputil.Retryable(resp.StatusCode) {
			return "", Transient(err)
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing Azure OpenAI response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in Azure OpenAI response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
