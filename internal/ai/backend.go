// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai abstracts the generative AI providers used to review
// bibliographic records.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/inis-qa/pkg/types"
)

// Backend abstracts the generative AI API so tests can supply a mock.
// Review takes one record serialized as JSON and returns the model's raw
// text reply.
type Backend interface {
	Review(ctx context.Context, record []byte) (string, error)
}

// New builds the configured backend with the given review instructions.
func New(cfg types.AIConfig, instructions string) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderAzureOpenAI:
		b := NewAzureOpenAI(cfg)
		b.Instructions = instructions
		return b, nil
	case types.ProviderAnthropic:
		b := NewAnthropic(cfg)
		b.Instructions = instructions
		return b, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// RetriesExhaustedError reports that every attempt against the AI backend
// failed. Callers treat it as fatal for a run rather than skipping the
// record.
type RetriesExhaustedError struct {
	MaxRetries int
	LastErr    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("after %d retries: %v", e.MaxRetries, e.LastErr)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.LastErr }

// transientError marks a backend failure worth retrying: the provider
// rate-limited, timed out, failed server-side, or the transport dropped.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so CallWithRetry will retry it.
func Transient(err error) error { return &transientError{err: err} }

// IsTransient reports whether a backend marked err as retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// CallWithRetry calls the backend with exponential backoff. Only failures
// the backend marked transient are retried; anything else (a rejected key,
// a malformed reply envelope) returns on the first attempt.
func CallWithRetry(ctx context.Context, backend Backend, record []byte, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, err := backend.Review(ctx, record)
		if err == nil {
			return reply, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", &RetriesExhaustedError{MaxRetries: maxRetries, LastErr: lastErr}
}

// StripFences removes a surrounding Markdown code fence from a model reply.
// Models sometimes wrap JSON in ```json blocks despite instructions.
func StripFences(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	return strings.TrimSpace(reply)
}
