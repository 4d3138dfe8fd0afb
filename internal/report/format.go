// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
	"time"
)

const recordURLBase = "https://inis.iaea.org/records/"

// FormatEmailBody renders the aggregate as the fixed-order plain-text
// document mailed to the feedback team: summary counts, errors, then one
// labeled section per non-empty issue category.
func FormatEmailBody(agg *Aggregate, date string, now time.Time) string {
	s := agg.Summary
	var b strings.Builder

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("INIS QA Check Results for %s", date)
	line(strings.Repeat("=", 50))
	line("")
	line("SUMMARY:")
	line("- %d records were checked", s.RecordsChecked)
	line("")
	line("CORRECTIONS APPLIED:")
	line("- %d title corrections", s.TitleCorrections)
	line("- %d affiliation corrections", s.AffiliationCorrections)
	line("- %d organizational author corrections", s.OrgAuthorCorrections)
	line("- %d abstract corrections", s.AbstractCorrections)
	line("- %d descriptor corrections", s.DescriptorCorrections)
	line("- %d date corrections", s.DateCorrections)
	line("")

	if s.Errors > 0 {
		line("ERRORS: %d files could not be processed", s.Errors)
		line("")
		for _, e := range agg.Errors {
			line("- %s", e)
		}
		line("")
	}

	listSection := func(header, note string, ids map[string]bool) {
		if len(ids) == 0 {
			return
		}
		line(header)
		line(note)
		for _, id := range sortedKeys(ids) {
			line("- %s%s", recordURLBase, id)
		}
		line("")
	}

	listSection("POSSIBLE DUPLICATE RECORDS:",
		"These records may be duplicates and should be reviewed:", agg.Duplicates)
	listSection("OUT-OF-SCOPE RECORDS:",
		"These records may not be suitable for INIS:", agg.OutOfScope)
	listSection("SUSPICIOUS CONTENT:",
		"These records may contain pseudoscience or require review:", agg.SuspiciousContent)
	listSection("HISTORICAL CONTEXT REQUIRED:",
		"These records use outdated terminology or methods:", agg.HistoricalContext)

	if len(agg.GeneralRecommendations) > 0 {
		line("GENERAL RECOMMENDATIONS:")
		line("Records requiring manual review:")
		for _, id := range sortedKeys(agg.GeneralRecommendations) {
			line("- %s%s", recordURLBase, id)
			for _, rec := range agg.GeneralRecommendations[id] {
				line("  - %s", rec)
			}
			line("")
		}
	}

	if len(agg.DescriptorDeletions) > 0 {
		line("DESCRIPTOR DELETION RECOMMENDATIONS:")
		line("The following descriptors should be removed:")
		for _, id := range sortedKeys(agg.DescriptorDeletions) {
			line("- %s%s", recordURLBase, id)
			for _, desc := range agg.DescriptorDeletions[id] {
				line("  - %q", desc)
			}
			line("")
		}
	}

	if len(agg.AbstractRecommendations) > 0 {
		line("ABSTRACT RECOMMENDATIONS:")
		line("Suggested abstracts for records missing English abstracts:")
		for _, id := range sortedKeys(agg.AbstractRecommendations) {
			line("- %s%s", recordURLBase, id)
			line("  Suggested: %s", truncateRunes(agg.AbstractRecommendations[id], 200))
			line("")
		}
	}

	line("")
	line("---")
	line("This report was generated automatically by the INIS QA system.")
	line("Generated at: %s", now.UTC().Format("2006-01-02 15:04:05 UTC"))
	line("")
	b.WriteString("For questions or issues, please contact the INIS team.")

	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
