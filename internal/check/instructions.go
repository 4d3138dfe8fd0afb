// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"os"
	"strings"
)

// fallbackInstructions is the minimal system prompt used when no
// instructions file is configured or the file is empty.
const fallbackInstructions = "You are an expert QA checker for INIS metadata. Return ONLY a JSON object " +
	"with corrections, recommendations, scope_ok, and the booleans title_corrected, " +
	"abstract_corrected, affiliation_correction_recommended."

// LoadInstructions reads the review instructions from path. A missing or
// empty file falls back to a minimal built-in prompt.
func LoadInstructions(path string) string {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if text := strings.TrimSpace(string(data)); text != "" {
				return text
			}
		}
	}
	return fallbackInstructions
}
