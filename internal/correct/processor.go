// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package correct

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/internal/qareport"
	"github.com/pdiddy/inis-qa/pkg/types"
)

const (
	correctedSuffix = "_corrected.json"
	statsFileName   = "correction_statistics.json"
	packageDirName  = "upload_package"
)

// Stats accumulates correction counters across one processing run.
type Stats struct {
	RecordsProcessed       int `json:"records_processed"`
	RecordsCorrected       int `json:"records_corrected"`
	TitleCorrections       int `json:"title_corrections"`
	AffiliationCorrections int `json:"affiliation_corrections"`
	OrgAuthorCorrections   int `json:"organizational_author_corrections"`
	AbstractCorrections    int `json:"abstract_corrections"`
	DescriptorCorrections  int `json:"descriptor_corrections"`
	DateCorrections        int `json:"date_corrections"`
	Errors                 int `json:"errors"`
}

// Snapshot is the immutable corrected-record artifact written per record.
type Snapshot struct {
	CorrectedRecord *types.Record      `json:"corrected_record"`
	Metadata        CorrectionMetadata `json:"correction_metadata"`
	OriginalRecord  json.RawMessage    `json:"original_record"`
}

// CorrectionMetadata describes what changed and where the instructions
// came from.
type CorrectionMetadata struct {
	OriginalRecordID   string         `json:"original_record_id"`
	CorrectionDate     string         `json:"correction_date"`
	CorrectionsApplied int            `json:"corrections_applied"`
	QAReportSource     string         `json:"qa_report_source"`
	CorrectionsSummary map[string]any `json:"corrections_summary"`
}

// Processor applies QA-report corrections to fetched records and writes
// snapshot artifacts. Now is overridable so tests can pin timestamps.
type Processor struct {
	Repo   *invenio.Client
	OutDir string
	Stats  Stats
	Now    func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessReports processes every report file, writes the run statistics,
// and returns the number of records that produced a snapshot. Per-report
// failures are logged and counted, never fatal.
func (p *Processor) ProcessReports(ctx context.Context, reportPaths []string, w io.Writer) (int, error) {
	if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	corrected := 0
	for _, path := range reportPaths {
		p.Stats.RecordsProcessed++

		snap, err := p.processReport(ctx, path, w)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", filepath.Base(path), err)
			p.Stats.Errors++
			continue
		}
		if snap == nil {
			fmt.Fprintf(w, "skipped %s: no automatic corrections\n", filepath.Base(path))
			continue
		}

		fmt.Fprintf(w, "corrected %s (%d edits)\n", snap.Metadata.OriginalRecordID, snap.Metadata.CorrectionsApplied)
		corrected++
	}

	if err := p.writeStats(reportPaths); err != nil {
		return corrected, fmt.Errorf("writing statistics: %w", err)
	}
	return corrected, nil
}

// processReport handles one report file: strict parse, fetch, apply, and
// snapshot. Returns nil when no correction fired.
func (p *Processor) processReport(ctx context.Context, reportPath string, w io.Writer) (*Snapshot, error) {
	report, err := qareport.ParseFile(reportPath)
	if err != nil {
		return nil, err
	}

	original, originalRaw, err := p.Repo.GetRecord(ctx, report.RecordID)
	if err != nil {
		return nil, err
	}
	corrected, err := original.Clone()
	if err != nil {
		return nil, fmt.Errorf("cloning record %s: %w", report.RecordID, err)
	}

	applied := p.applyCorrections(corrected, report, w)
	MarkQAChecked(corrected)

	if applied == 0 {
		return nil, nil
	}

	snap := &Snapshot{
		CorrectedRecord: corrected,
		Metadata: CorrectionMetadata{
			OriginalRecordID:   report.RecordID,
			CorrectionDate:     p.now().Format(time.RFC3339),
			CorrectionsApplied: applied,
			QAReportSource:     reportPath,
			CorrectionsSummary: report.CorrectionsMap(),
		},
		OriginalRecord: originalRaw,
	}

	outPath := filepath.Join(p.OutDir, report.RecordID+correctedSuffix)
	if err := writeJSON(outPath, snap); err != nil {
		return nil, err
	}
	p.Stats.RecordsCorrected++
	return snap, nil
}

// applyCorrections dispatches every matcher the report calls for and
// returns the applied count. Title, abstract, descriptor, and date edits
// fire only when their flag and corrections key are both present;
// affiliation and organizational-author edits fire whenever their pair
// list is non-empty; related identifiers fire on key presence alone. A
// panicking matcher is logged and counted as not applied.
func (p *Processor) applyCorrections(rec *types.Record, report *qareport.Report, w io.Writer) int {
	applied := 0

	if report.TitleCorrected {
		if c, ok := report.Correction(qareport.KindTitle); ok {
			if n := dispatch(w, rec.ID, "title", func() int {
				return ApplyTitle(rec, c.(qareport.TitleCorrection).Title)
			}); n > 0 {
				applied++
				p.Stats.TitleCorrections++
			}
		}
	}

	if report.AbstractCorrected {
		if c, ok := report.Correction(qareport.KindAbstract); ok {
			if n := dispatch(w, rec.ID, "abstract", func() int {
				return ApplyAbstract(rec, c.(qareport.AbstractCorrection).Abstract)
			}); n > 0 {
				applied++
				p.Stats.AbstractCorrections++
			}
		}
	}

	if len(report.AffiliationCorrections) > 0 {
		if n := dispatch(w, rec.ID, "affiliation", func() int {
			return ApplyAffiliations(rec, report.AffiliationCorrections)
		}); n > 0 {
			applied += n
			p.Stats.AffiliationCorrections++
		}
	}

	if len(report.OrganizationalAuthorCorrections) > 0 {
		if n := dispatch(w, rec.ID, "organizational author", func() int {
			return ApplyOrgAuthors(rec, report.OrganizationalAuthorCorrections)
		}); n > 0 {
			applied += n
			p.Stats.OrgAuthorCorrections++
		}
	}

	if report.DescriptorCorrected {
		if c, ok := report.Correction(qareport.KindDescriptorDeletion); ok {
			if n := dispatch(w, rec.ID, "descriptor deletion", func() int {
				return ApplyDescriptorDeletions(rec, c.(qareport.DescriptorDeletion).Descriptors)
			}); n > 0 {
				applied++
				p.Stats.DescriptorCorrections++
			}
		}
	}

	if report.DateCorrected {
		if c, ok := report.Correction(qareport.KindPublicationDate); ok {
			if n := dispatch(w, rec.ID, "publication date", func() int {
				return ApplyPublicationDate(rec, c.(qareport.DateCorrection).Date)
			}); n > 0 {
				applied++
				p.Stats.DateCorrections++
			}
		}
	}

	if c, ok := report.Correction(qareport.KindRelatedIdentifiers); ok {
		if n := dispatch(w, rec.ID, "related identifiers", func() int {
			return AddRelatedIdentifiers(rec, c.(qareport.RelatedIdentifierAddition).Identifiers)
		}); n > 0 {
			applied++
		}
	}

	return applied
}

// dispatch runs one matcher, converting a panic into zero edits so the
// remaining matchers and records still run.
func dispatch(w io.Writer, recordID, name string, fn func() int) (applied int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(w, "warning %s: %s matcher failed: %v\n", recordID, name, r)
			applied = 0
		}
	}()
	return fn()
}

// runStatistics is the correction_statistics.json document.
type runStatistics struct {
	ProcessingDate string   `json:"processing_date"`
	Statistics     Stats    `json:"statistics"`
	ProcessedFiles []string `json:"processed_files"`
}

func (p *Processor) writeStats(reportPaths []string) error {
	return writeJSON(filepath.Join(p.OutDir, statsFileName), runStatistics{
		ProcessingDate: p.now().Format(time.RFC3339),
		Statistics:     p.Stats,
		ProcessedFiles: reportPaths,
	})
}

// uploadSummary is the upload_summary.json document inside a package.
type uploadSummary struct {
	PackageCreated string   `json:"package_created"`
	TotalRecords   int      `json:"total_records"`
	Records        []string `json:"records"`
	Statistics     Stats    `json:"statistics"`
}

// CreateUploadPackage extracts the bare corrected records from this run's
// snapshots into an upload_package directory with a summary file. Returns
// the package path, or "" when there is nothing to package.
func (p *Processor) CreateUploadPackage() (string, error) {
	snapshots, err := filepath.Glob(filepath.Join(p.OutDir, "*"+correctedSuffix))
	if err != nil {
		return "", err
	}
	if len(snapshots) == 0 {
		return "", nil
	}
	sort.Strings(snapshots)

	packageDir := filepath.Join(p.OutDir, packageDirName)
	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return "", fmt.Errorf("creating package directory: %w", err)
	}

	var recordIDs []string
	for _, path := range snapshots {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading snapshot %s: %w", path, err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return "", fmt.Errorf("parsing snapshot %s: %w", path, err)
		}

		recordID := snap.Metadata.OriginalRecordID
		if recordID == "" {
			recordID = strings.TrimSuffix(filepath.Base(path), correctedSuffix)
		}
		if err := writeJSON(filepath.Join(packageDir, recordID+".json"), snap.CorrectedRecord); err != nil {
			return "", err
		}
		recordIDs = append(recordIDs, recordID)
	}

	summary := uploadSummary{
		PackageCreated: p.now().Format(time.RFC3339),
		TotalRecords:   len(snapshots),
		Records:        recordIDs,
		Statistics:     p.Stats,
	}
	if err := writeJSON(filepath.Join(packageDir, "upload_summary.json"), summary); err != nil {
		return "", err
	}
	return packageDir, nil
}

// FindReports lists the *-report.json files in dir in lexical order.
func FindReports(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*-report.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
