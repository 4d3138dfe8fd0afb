// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package check runs the daily QA pass: it fetches unreviewed records,
// asks the AI backend to review each one, layers deterministic checks on
// top, and writes one report file per record.
package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/inis-qa/internal/ai"
	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/pkg/types"
)

const (
	fetchSize       = 1000
	fetchSort       = "oldest"
	rawPreviewRunes = 500
)

// Source is one record queued for review, with the stem used to name its
// report file.
type Source struct {
	Stem   string
	Record *types.Record
}

// BatchSummary holds counts from one QA run.
type BatchSummary struct {
	Checked  int
	Findings int
	Errors   int
}

// Total returns the number of records processed.
func (s BatchSummary) Total() int {
	return s.Checked + s.Errors
}

// Checker wires the repository client and AI backend for one QA run.
// Now is overridable so tests can pin the clock.
type Checker struct {
	Repo       *invenio.Client
	AI         ai.Backend
	OutDir     string
	MaxRetries int
	Verbose    bool
	Now        func() time.Time
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// FetchRecordsByDate fetches records created on the given day that have
// not been QA-checked and did not originate from the legacy xa input
// country. date defaults to yesterday.
func (c *Checker) FetchRecordsByDate(ctx context.Context, date string) ([]Source, error) {
	if date == "" {
		date = c.now().AddDate(0, 0, -1).Format("2006-01-02")
	}

	query := fmt.Sprintf(`created:%q AND NOT custom_fields.iaea\:country_of_input.id: xa AND NOT custom_fields.iaea\:qa_checked: (true)`, date)
	result, err := c.Repo.Search(ctx, query, fetchSize, fetchSort)
	if err != nil {
		return nil, fmt.Errorf("fetching records for %s: %w", date, err)
	}

	sources := make([]Source, 0, len(result.Records))
	for i := range result.Records {
		rec := &result.Records[i]
		stem := rec.ID
		if stem == "" {
			stem = fmt.Sprintf("record_%d", i)
		}
		sources = append(sources, Source{Stem: stem, Record: rec})
	}
	return sources, nil
}

// LoadDir reads every .json file in directory as a record. Files that do
// not parse are reported on w and skipped.
func LoadDir(directory string, w io.Writer) ([]Source, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("reading records directory %s: %w", directory, err)
	}

	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(directory, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			fmt.Fprintf(w, "failed  %s: JSON error: %v\n", entry.Name(), err)
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		sources = append(sources, Source{Stem: stem, Record: &rec})
	}
	return sources, nil
}

// Run reviews each source and writes <stem>-report.json into OutDir. A
// report is written for every record, findings or not, so downstream
// stages see the full day. An exhausted AI backend aborts the run;
// per-record duplicate-search failures are logged and degrade to
// not-duplicate.
func (c *Checker) Run(ctx context.Context, sources []Source, w io.Writer) (BatchSummary, error) {
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	var summary BatchSummary

	for _, src := range sources {
		reportPath := filepath.Join(c.OutDir, src.Stem+"-report.json")

		report, err := c.checkOne(ctx, src.Record, w)
		if err != nil {
			var exhausted *ai.RetriesExhaustedError
			if errors.As(err, &exhausted) || ctx.Err() != nil {
				return summary, fmt.Errorf("reviewing %s: %w", src.Stem, err)
			}
			fmt.Fprintf(w, "failed  %s: %v\n", src.Stem, err)
			summary.Errors++
			continue
		}

		if err := writeReport(reportPath, report); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", src.Stem, err)
			summary.Errors++
			continue
		}

		switch {
		case report["error"] != nil:
			fmt.Fprintf(w, "checked %s: assistant error\n", src.Stem)
			summary.Findings++
		case hasFindings(report):
			fmt.Fprintf(w, "checked %s: fixes/advice emitted\n", src.Stem)
			summary.Findings++
		default:
			fmt.Fprintf(w, "checked %s: all OK\n", src.Stem)
		}
		summary.Checked++
	}

	return summary, nil
}

// checkOne produces the merged report map for one record: the AI reply
// plus duplicate flags, deterministic recommendations, and the record id.
func (c *Checker) checkOne(ctx context.Context, rec *types.Record, w io.Writer) (map[string]any, error) {
	flags, err := checkDuplicates(ctx, c.Repo, rec)
	if err != nil {
		fmt.Fprintf(w, "warning %s: %v\n", rec.ID, err)
		flags = duplicateFlags{}
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}

	raw, err := ai.CallWithRetry(ctx, c.AI, recordJSON, c.MaxRetries)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		fmt.Fprintf(w, "raw reply %s: %s\n", rec.ID, truncateRunes(strings.ReplaceAll(raw, "\n", " "), 300))
	}

	report := map[string]any{}
	if err := json.Unmarshal([]byte(ai.StripFences(raw)), &report); err != nil {
		report = map[string]any{
			"error":       fmt.Sprintf("Assistant returned non-JSON: %v", err),
			"raw_preview": truncateRunes(raw, rawPreviewRunes),
		}
	}

	report["duplicate_by_title"] = flags.ByTitle
	report["duplicate_by_doi"] = flags.ByDOI
	report["record_id"] = rec.ID

	var extra []any
	if leadID := rec.CustomFields.LeadRecordID(); leadID != "" && !isValidLeadRecordID(leadID) {
		extra = append(extra, fmt.Sprintf("Lead Record appears to be invalid: %s", leadID))
	}
	if pubDate := rec.Metadata.PublicationDate; pubDate != "" && isFutureDate(pubDate, c.now()) {
		extra = append(extra, fmt.Sprintf("Publication date is in the future: %s", pubDate))
	}
	if len(extra) > 0 {
		recs, _ := report["recommendations"].([]any)
		report["recommendations"] = append(recs, extra...)
	}

	return report, nil
}

// hasFindings reports whether the report carries anything a human or the
// corrector would act on.
func hasFindings(report map[string]any) bool {
	for _, key := range []string{"corrections", "recommendations", "affiliation_corrections"} {
		switch v := report[key].(type) {
		case nil:
		case []any:
			if len(v) > 0 {
				return true
			}
		case map[string]any:
			if len(v) > 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

func writeReport(path string, report map[string]any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
