// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package correct turns QA reports into corrected-record snapshots. The
// matchers in this file mutate a record in place and report how many
// edits they made; the processor decides which matchers fire for a given
// report.
package correct

import (
	"strings"

	"github.com/pdiddy/inis-qa/internal/qareport"
	"github.com/pdiddy/inis-qa/pkg/types"
)

// ApplyTitle overwrites the record title. Always counts as one edit.
func ApplyTitle(rec *types.Record, title string) int {
	rec.Metadata.Title = title
	return 1
}

// ApplyAbstract overwrites the record abstract. Always counts as one edit.
func ApplyAbstract(rec *types.Record, abstract string) int {
	rec.Metadata.Description = abstract
	return 1
}

// ApplyPublicationDate overwrites the publication date. The replacement
// value is taken as-is, with no format validation.
func ApplyPublicationDate(rec *types.Record, date string) int {
	rec.Metadata.PublicationDate = date
	return 1
}

// ApplyAffiliations rewrites creator affiliations. Every affiliation whose
// name exactly equals a pair's old value is overwritten with the
// recommended value; pairs with an empty side are skipped. Returns the
// number of affiliation entries rewritten.
func ApplyAffiliations(rec *types.Record, pairs []qareport.AffiliationCorrection) int {
	applied := 0
	for _, pair := range pairs {
		if pair.Old == "" || pair.Recommended == "" {
			continue
		}
		for ci := range rec.Metadata.Creators {
			creator := &rec.Metadata.Creators[ci]
			for ai := range creator.Affiliations {
				if creator.Affiliations[ai].Name == pair.Old {
					creator.Affiliations[ai].Name = pair.Recommended
					applied++
				}
			}
		}
	}
	return applied
}

// ApplyOrgAuthors rewrites organizational author names with the same
// matching discipline as ApplyAffiliations, scoped to creators of
// organizational type. Returns the number of creators rewritten.
func ApplyOrgAuthors(rec *types.Record, pairs []qareport.OrgAuthorCorrection) int {
	applied := 0
	for _, pair := range pairs {
		if pair.Old == "" || pair.Recommended == "" {
			continue
		}
		for ci := range rec.Metadata.Creators {
			creator := &rec.Metadata.Creators[ci]
			if creator.PersonOrOrg.Type != types.CreatorOrganizational {
				continue
			}
			if creator.PersonOrOrg.Name == pair.Old {
				creator.PersonOrOrg.Name = pair.Recommended
				applied++
			}
		}
	}
	return applied
}

// ApplyDescriptorDeletions removes descriptors whose lowercase form is in
// the deletion list. Returns the number of descriptors removed.
func ApplyDescriptorDeletions(rec *types.Record, deletions []string) int {
	descriptors := rec.CustomFields.Descriptors()
	if len(descriptors) == 0 {
		return 0
	}

	drop := make(map[string]bool, len(deletions))
	for _, d := range deletions {
		drop[strings.ToLower(d)] = true
	}

	kept := descriptors[:0]
	for _, d := range descriptors {
		if !drop[strings.ToLower(d)] {
			kept = append(kept, d)
		}
	}

	removed := len(descriptors) - len(kept)
	if removed > 0 {
		rec.CustomFields.SetDescriptors(kept)
	}
	return removed
}

// AddRelatedIdentifiers appends identifiers not already present, matching
// on the identifier string. Returns the number appended.
func AddRelatedIdentifiers(rec *types.Record, additions []types.RelatedIdentifier) int {
	existing := make(map[string]bool, len(rec.Metadata.RelatedIdentifiers))
	for _, ri := range rec.Metadata.RelatedIdentifiers {
		existing[ri.Identifier] = true
	}

	applied := 0
	for _, ri := range additions {
		if ri.Identifier == "" || existing[ri.Identifier] {
			continue
		}
		rec.Metadata.RelatedIdentifiers = append(rec.Metadata.RelatedIdentifiers, ri)
		existing[ri.Identifier] = true
		applied++
	}
	return applied
}

// MarkQAChecked sets the QA-checked marker. Applied to every processed
// record whether or not any other correction fired.
func MarkQAChecked(rec *types.Record) {
	rec.EnsureCustomFields().SetQAChecked(true)
}
