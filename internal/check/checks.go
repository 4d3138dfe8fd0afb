// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/pkg/types"
)

// leadRecordIDPattern is the repository record id shape: two groups of
// five lowercase alphanumerics joined by a hyphen.
var leadRecordIDPattern = regexp.MustCompile(`^[a-z0-9]{5}-[a-z0-9]{5}$`)

// isValidLeadRecordID reports whether value looks like a record id.
func isValidLeadRecordID(value string) bool {
	return leadRecordIDPattern.MatchString(value)
}

// isFutureDate reports whether a publication date (YYYY-MM-DD or YYYY-MM)
// lies after now. Malformed or partial dates are not future.
func isFutureDate(dateStr string, now time.Time) bool {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.After(now)
		}
	}
	return false
}

// duplicateFlags holds the results of the repository-wide duplicate
// searches for one record.
type duplicateFlags struct {
	ByTitle bool
	ByDOI   bool
}

// checkDuplicates searches the repository for other records sharing this
// record's DOI or exact title. The record itself is excluded by id.
func checkDuplicates(ctx context.Context, repo *invenio.Client, rec *types.Record) (duplicateFlags, error) {
	var flags duplicateFlags

	if doi := rec.Metadata.DOI(); doi != "" {
		q := fmt.Sprintf("identifiers.identifier:%q", doi)
		if rec.ID != "" {
			q += " AND NOT id: " + rec.ID
		}
		result, err := repo.Search(ctx, q, 1, "")
		if err != nil {
			return flags, fmt.Errorf("duplicate search by DOI: %w", err)
		}
		flags.ByDOI = result.Total > 0
	}

	if title := rec.Metadata.Title; title != "" {
		q := fmt.Sprintf("metadata.title:%q", title)
		if rec.ID != "" {
			q += " AND NOT id: " + rec.ID
		}
		result, err := repo.Search(ctx, q, 1, "")
		if err != nil {
			return flags, fmt.Errorf("duplicate search by title: %w", err)
		}
		flags.ByTitle = result.Total > 0
	}

	return flags, nil
}
