// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report aggregates a run's QA report files into the plain-text
// summary mailed to the feedback team, with the raw reports zipped as an
// attachment.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/inis-qa/internal/qareport"
)

// Summary holds the per-kind counters for one run.
type Summary struct {
	RecordsChecked         int
	TitleCorrections       int
	AffiliationCorrections int
	OrgAuthorCorrections   int
	AbstractCorrections    int
	DescriptorCorrections  int
	DateCorrections        int
	Errors                 int
}

// Aggregate is everything the email body is built from. Record-keyed maps
// are rendered in sorted record-id order.
type Aggregate struct {
	Summary Summary

	Duplicates        map[string]bool
	OutOfScope        map[string]bool
	SuspiciousContent map[string]bool
	HistoricalContext map[string]bool

	DescriptorDeletions     map[string][]string
	AbstractRecommendations map[string]string
	GeneralRecommendations  map[string][]string
	CorrectionsSummary      map[string][]string

	Errors []string
}

func newAggregate() *Aggregate {
	return &Aggregate{
		Duplicates:              map[string]bool{},
		OutOfScope:              map[string]bool{},
		SuspiciousContent:       map[string]bool{},
		HistoricalContext:       map[string]bool{},
		DescriptorDeletions:     map[string][]string{},
		AbstractRecommendations: map[string]string{},
		GeneralRecommendations:  map[string][]string{},
		CorrectionsSummary:      map[string][]string{},
	}
}

// Scan aggregates every *-report.json in qaFolder. A file that fails to
// parse is counted as an error and excluded from all other aggregates.
func Scan(qaFolder string) (*Aggregate, error) {
	paths, err := filepath.Glob(filepath.Join(qaFolder, "*-report.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning QA folder %s: %w", qaFolder, err)
	}
	sort.Strings(paths)

	agg := newAggregate()
	for _, path := range paths {
		name := filepath.Base(path)

		rep, err := qareport.ParseFile(path)
		if err != nil && !errors.Is(err, qareport.ErrNoRecordID) {
			agg.Errors = append(agg.Errors, fmt.Sprintf("Could not parse %s: %v", name, err))
			agg.Summary.Errors++
			continue
		}

		recordID := rep.RecordID
		if recordID == "" {
			recordID = strings.TrimSuffix(name, "-report.json")
		}
		agg.add(recordID, rep)
	}
	return agg, nil
}

func (agg *Aggregate) add(recordID string, rep *qareport.Report) {
	s := &agg.Summary
	s.RecordsChecked++

	if rep.TitleCorrected {
		s.TitleCorrections++
	}
	if rep.AbstractCorrected {
		s.AbstractCorrections++
	}
	if rep.DescriptorCorrected {
		s.DescriptorCorrections++
	}
	if rep.DateCorrected {
		s.DateCorrections++
	}
	if rep.AffiliationCorrectionRecommended && len(rep.AffiliationCorrections) > 0 {
		s.AffiliationCorrections += len(rep.AffiliationCorrections)
	}
	if len(rep.OrganizationalAuthorCorrections) > 0 {
		s.OrgAuthorCorrections += len(rep.OrganizationalAuthorCorrections)
	}

	if !rep.ScopeOK {
		agg.OutOfScope[recordID] = true
	}
	if rep.DuplicateByTitle || rep.DuplicateByDOI {
		agg.Duplicates[recordID] = true
	}
	if rep.SuspiciousContent {
		agg.SuspiciousContent[recordID] = true
	}
	if rep.HistoricalContextRequired {
		agg.HistoricalContext[recordID] = true
	}

	for _, c := range rep.Corrections {
		switch v := c.(type) {
		case qareport.DescriptorDeletion:
			agg.DescriptorDeletions[recordID] = append(agg.DescriptorDeletions[recordID], v.Descriptors...)
		case qareport.AbstractCorrection:
			if rep.AbstractCorrected {
				agg.AbstractRecommendations[recordID] = v.Abstract
			}
		default:
			agg.CorrectionsSummary[recordID] = append(agg.CorrectionsSummary[recordID],
				fmt.Sprintf("%s: %s", c.Kind(), c.Value()))
		}
	}

	for _, rec := range rep.Recommendations {
		agg.GeneralRecommendations[recordID] = append(agg.GeneralRecommendations[recordID], rec)
	}
}

// sortedKeys returns map keys in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
