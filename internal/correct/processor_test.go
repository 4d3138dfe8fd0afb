package correct

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inis-qa/internal/invenio"
)

var fixedNow = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

func newProcessor(srv *httptest.Server, outDir string) *Processor {
	return &Processor{
		Repo:   &invenio.Client{BaseURL: srv.URL, HTTP: srv.Client(), MaxRetries: 1},
		OutDir: outDir,
		Now:    func() time.Time { return fixedNow },
	}
}

func writeReportFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func recordServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
}

func TestProcessReportsTitleCorrection(t *testing.T) {
	srv := recordServer(t, `{"id":"abcde-12345","metadata":{"title":"Old Title"},"custom_fields":{}}`)
	defer srv.Close()

	reportDir := t.TempDir()
	outDir := t.TempDir()
	reportPath := writeReportFile(t, reportDir, "abcde-12345-report.json",
		`{"record_id":"abcde-12345","title_corrected":true,"corrections":{"title":"New Title"}}`)

	p := newProcessor(srv, outDir)
	corrected, err := p.ProcessReports(context.Background(), []string{reportPath}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assert.Equal(t, 1, p.Stats.RecordsProcessed)
	assert.Equal(t, 1, p.Stats.RecordsCorrected)
	assert.Equal(t, 1, p.Stats.TitleCorrections)

	data, err := os.ReadFile(filepath.Join(outDir, "abcde-12345_corrected.json"))
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	assert.Equal(t, "New Title", snap.CorrectedRecord.Metadata.Title)
	assert.True(t, snap.CorrectedRecord.CustomFields.QAChecked())
	assert.Equal(t, 1, snap.Metadata.CorrectionsApplied)
	assert.Equal(t, "abcde-12345", snap.Metadata.OriginalRecordID)
	assert.Equal(t, reportPath, snap.Metadata.QAReportSource)
	assert.Equal(t, map[string]any{"title": "New Title"}, snap.Metadata.CorrectionsSummary)

	// The original is preserved untouched.
	var original map[string]any
	require.NoError(t, json.Unmarshal(snap.OriginalRecord, &original))
	assert.Equal(t, "Old Title", original["metadata"].(map[string]any)["title"])
}

func TestProcessReportsFlagWithoutKeyIsNoCorrection(t *testing.T) {
	srv := recordServer(t, `{"id":"abcde-12345","metadata":{"title":"Old Title"},"custom_fields":{}}`)
	defer srv.Close()

	reportDir := t.TempDir()
	reportPath := writeReportFile(t, reportDir, "abcde-12345-report.json",
		`{"record_id":"abcde-12345","title_corrected":true}`)

	p := newProcessor(srv, t.TempDir())
	corrected, err := p.ProcessReports(context.Background(), []string{reportPath}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, corrected)
	assert.Equal(t, 0, p.Stats.TitleCorrections)
	assert.NoFileExists(t, filepath.Join(p.OutDir, "abcde-12345_corrected.json"))
}

func TestProcessReportsAffiliationsFireWithoutFlag(t *testing.T) {
	srv := recordServer(t, `{"id":"abcde-12345","metadata":{"creators":[{"person_or_org":{"type":"personal","name":"Doe, Jane"},"affiliations":[{"name":"Old Institute"},{"name":"Old Institute"}]}]},"custom_fields":{}}`)
	defer srv.Close()

	reportDir := t.TempDir()
	reportPath := writeReportFile(t, reportDir, "abcde-12345-report.json",
		`{"record_id":"abcde-12345","affiliation_corrections":[{"old_affiliation":"Old Institute","recommended_affiliation":"New Institute"}]}`)

	p := newProcessor(srv, t.TempDir())
	corrected, err := p.ProcessReports(context.Background(), []string{reportPath}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assert.Equal(t, 1, p.Stats.AffiliationCorrections)

	data, err := os.ReadFile(filepath.Join(p.OutDir, "abcde-12345_corrected.json"))
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	// Both matching entries rewritten, each counted.
	assert.Equal(t, 2, snap.Metadata.CorrectionsApplied)
}

func TestProcessReportsMalformedReportCounted(t *testing.T) {
	srv := recordServer(t, `{}`)
	defer srv.Close()

	reportDir := t.TempDir()
	bad := writeReportFile(t, reportDir, "bad-report.json", `{nope`)
	noID := writeReportFile(t, reportDir, "noid-report.json", `{"title_corrected":true}`)

	p := newProcessor(srv, t.TempDir())
	corrected, err := p.ProcessReports(context.Background(), []string{bad, noID}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, corrected)
	assert.Equal(t, 2, p.Stats.RecordsProcessed)
	assert.Equal(t, 2, p.Stats.Errors)
}

func TestProcessReportsWritesStatistics(t *testing.T) {
	srv := recordServer(t, `{"id":"abcde-12345","metadata":{},"custom_fields":{}}`)
	defer srv.Close()

	reportDir := t.TempDir()
	reportPath := writeReportFile(t, reportDir, "abcde-12345-report.json",
		`{"record_id":"abcde-12345"}`)

	p := newProcessor(srv, t.TempDir())
	_, err := p.ProcessReports(context.Background(), []string{reportPath}, io.Discard)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(p.OutDir, "correction_statistics.json"))
	require.NoError(t, err)
	var stats runStatistics
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 1, stats.Statistics.RecordsProcessed)
	assert.Equal(t, []string{reportPath}, stats.ProcessedFiles)
	assert.Equal(t, fixedNow.Format(time.RFC3339), stats.ProcessingDate)
}

func TestCreateUploadPackage(t *testing.T) {
	srv := recordServer(t, `{"id":"abcde-12345","metadata":{"title":"Old Title"},"custom_fields":{}}`)
	defer srv.Close()

	reportDir := t.TempDir()
	reportPath := writeReportFile(t, reportDir, "abcde-12345-report.json",
		`{"record_id":"abcde-12345","title_corrected":true,"corrections":{"title":"New Title"}}`)

	p := newProcessor(srv, t.TempDir())
	_, err := p.ProcessReports(context.Background(), []string{reportPath}, io.Discard)
	require.NoError(t, err)

	packageDir, err := p.CreateUploadPackage()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.OutDir, "upload_package"), packageDir)

	data, err := os.ReadFile(filepath.Join(packageDir, "abcde-12345.json"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "New Title", rec["metadata"].(map[string]any)["title"])

	data, err = os.ReadFile(filepath.Join(packageDir, "upload_summary.json"))
	require.NoError(t, err)
	var summary uploadSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 1, summary.TotalRecords)
	assert.Equal(t, []string{"abcde-12345"}, summary.Records)
}

func TestCreateUploadPackageEmpty(t *testing.T) {
	p := &Processor{OutDir: t.TempDir()}
	packageDir, err := p.CreateUploadPackage()
	require.NoError(t, err)
	assert.Empty(t, packageDir)
}

func TestFindReports(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "b-report.json", `{}`)
	writeReportFile(t, dir, "a-report.json", `{}`)
	writeReportFile(t, dir, "other.json", `{}`)

	paths, err := FindReports(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a-report.json"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b-report.json"), paths[1])
}
