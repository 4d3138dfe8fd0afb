// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apply pushes trusted corrections from QA reports to the live
// repository through the draft/publish flow. The default mode is a dry
// run that fetches records read-only and logs the edits it would make.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/pdiddy/inis-qa/internal/correct"
	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/internal/qareport"
	"github.com/pdiddy/inis-qa/pkg/types"
)

// Stats accumulates counters across one apply run.
type Stats struct {
	RecordsProcessed       int `json:"records_processed"`
	RecordsUpdated         int `json:"records_updated"`
	RecordsQACheckedOnly   int `json:"records_qa_checked_only"`
	TitleCorrections       int `json:"title_corrections"`
	AffiliationCorrections int `json:"affiliation_corrections"`
	OrgAuthorCorrections   int `json:"organizational_author_corrections"`
	Errors                 int `json:"errors"`
}

// Applier applies report corrections to the live repository. Only the
// trusted kinds are applied here: title, affiliation, and organizational
// author. Every processed record is marked QA checked.
type Applier struct {
	Repo   *invenio.Client
	DryRun bool
	Stats  Stats
}

// ProcessFolder handles every .json report in folder. Per-record failures
// are logged and counted; the scan itself only fails on an unreadable
// folder.
func (a *Applier) ProcessFolder(ctx context.Context, folder string, w io.Writer) error {
	paths, err := filepath.Glob(filepath.Join(folder, "*.json"))
	if err != nil {
		return fmt.Errorf("scanning QA folder %s: %w", folder, err)
	}
	sort.Strings(paths)

	if a.DryRun {
		fmt.Fprintln(w, "** DRY RUN MODE **")
	} else {
		fmt.Fprintln(w, "** APPLYING CHANGES **")
	}
	fmt.Fprintf(w, "processing %d QA report file(s)\n", len(paths))

	for _, path := range paths {
		name := filepath.Base(path)

		report, err := qareport.ParseFile(path)
		if errors.Is(err, qareport.ErrNoRecordID) {
			fmt.Fprintf(w, "skipped %s: no record_id\n", name)
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			a.Stats.Errors++
			continue
		}

		if report.HasApplicableCorrections() {
			a.updateRecord(ctx, report, w)
		} else {
			a.markQACheckedOnly(ctx, report.RecordID, w)
		}
	}

	a.printStats(w)
	return nil
}

// updateRecord applies the report's trusted corrections to one record and
// publishes the result. In dry-run mode the record is fetched read-only
// and nothing is written back.
func (a *Applier) updateRecord(ctx context.Context, report *qareport.Report, w io.Writer) {
	a.Stats.RecordsProcessed++

	rec, err := a.openForEdit(ctx, report.RecordID)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", report.RecordID, err)
		a.Stats.Errors++
		return
	}

	applied := 0
	if c, ok := report.Correction(qareport.KindTitle); ok {
		oldTitle := rec.Metadata.Title
		correct.ApplyTitle(rec, c.(qareport.TitleCorrection).Title)
		fmt.Fprintf(w, "title %s: %q -> %q\n", report.RecordID, oldTitle, rec.Metadata.Title)
		applied++
		a.Stats.TitleCorrections++
	}
	if len(report.AffiliationCorrections) > 0 {
		if n := correct.ApplyAffiliations(rec, report.AffiliationCorrections); n > 0 {
			fmt.Fprintf(w, "affiliations %s: %d rewritten\n", report.RecordID, n)
			applied++
			a.Stats.AffiliationCorrections++
		}
	}
	if len(report.OrganizationalAuthorCorrections) > 0 {
		if n := correct.ApplyOrgAuthors(rec, report.OrganizationalAuthorCorrections); n > 0 {
			fmt.Fprintf(w, "org authors %s: %d rewritten\n", report.RecordID, n)
			applied++
			a.Stats.OrgAuthorCorrections++
		}
	}

	correct.MarkQAChecked(rec)
	if applied == 0 {
		fmt.Fprintf(w, "no corrections applied for %s, marking as QA checked\n", report.RecordID)
	}

	if a.DryRun {
		fmt.Fprintf(w, "dry-run: changes not applied for %s\n", report.RecordID)
		a.Stats.RecordsUpdated++
		return
	}

	if err := a.publish(ctx, report.RecordID, rec); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", report.RecordID, err)
		a.Stats.Errors++
		return
	}
	fmt.Fprintf(w, "published %s\n", report.RecordID)
	a.Stats.RecordsUpdated++
}

// markQACheckedOnly sets the QA-checked marker on a record with no
// applicable corrections.
func (a *Applier) markQACheckedOnly(ctx context.Context, recordID string, w io.Writer) {
	a.Stats.RecordsProcessed++

	rec, err := a.openForEdit(ctx, recordID)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", recordID, err)
		a.Stats.Errors++
		return
	}

	correct.MarkQAChecked(rec)

	if a.DryRun {
		fmt.Fprintf(w, "dry-run: would mark %s as QA checked\n", recordID)
		a.Stats.RecordsUpdated++
		a.Stats.RecordsQACheckedOnly++
		return
	}

	if err := a.publish(ctx, recordID, rec); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", recordID, err)
		a.Stats.Errors++
		return
	}
	fmt.Fprintf(w, "marked %s as QA checked\n", recordID)
	a.Stats.RecordsUpdated++
	a.Stats.RecordsQACheckedOnly++
}

// openForEdit returns the document corrections are applied to: the full
// draft in live mode, the published record in dry-run mode (so a dry run
// never creates a draft).
func (a *Applier) openForEdit(ctx context.Context, recordID string) (*types.Record, error) {
	if a.DryRun {
		rec, _, err := a.Repo.GetRecord(ctx, recordID)
		return rec, err
	}
	if err := a.Repo.NewDraft(ctx, recordID); err != nil {
		return nil, err
	}
	return a.Repo.GetDraft(ctx, recordID)
}

func (a *Applier) publish(ctx context.Context, recordID string, rec *types.Record) error {
	if err := a.Repo.UpdateDraft(ctx, recordID, rec); err != nil {
		return err
	}
	return a.Repo.Publish(ctx, recordID)
}

func (a *Applier) printStats(w io.Writer) {
	fmt.Fprintln(w, "final statistics:")
	fmt.Fprintf(w, "  records_processed: %d\n", a.Stats.RecordsProcessed)
	fmt.Fprintf(w, "  records_updated: %d\n", a.Stats.RecordsUpdated)
	fmt.Fprintf(w, "  records_qa_checked_only: %d\n", a.Stats.RecordsQACheckedOnly)
	fmt.Fprintf(w, "  title_corrections: %d\n", a.Stats.TitleCorrections)
	fmt.Fprintf(w, "  affiliation_corrections: %d\n", a.Stats.AffiliationCorrections)
	fmt.Fprintf(w, "  organizational_author_corrections: %d\n", a.Stats.OrgAuthorCorrections)
	fmt.Fprintf(w, "  errors: %d\n", a.Stats.Errors)
}
