package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inis-qa/internal/ai"
	"github.com/pdiddy/inis-qa/internal/invenio"
	"github.com/pdiddy/inis-qa/pkg/types"
)

var fixedNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

// stubAI returns a fixed reply, or an error when reply is empty.
type stubAI struct {
	reply string
	calls int
}

func (s *stubAI) Review(_ context.Context, _ []byte) (string, error) {
	s.calls++
	if s.reply == "" {
		return "", ai.Transient(fmt.Errorf("backend down"))
	}
	return s.reply, nil
}

func emptySearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hits":{"total":0,"hits":[]}}`))
	}))
}

func newChecker(srv *httptest.Server, backend *stubAI, outDir string) *Checker {
	return &Checker{
		Repo:       &invenio.Client{BaseURL: srv.URL, HTTP: srv.Client(), MaxRetries: 1},
		AI:         backend,
		OutDir:     outDir,
		MaxRetries: 1,
		Now:        func() time.Time { return fixedNow },
	}
}

func TestIsValidLeadRecordID(t *testing.T) {
	assert.True(t, isValidLeadRecordID("abc12-def34"))
	assert.True(t, isValidLeadRecordID("00000-zzzzz"))
	assert.False(t, isValidLeadRecordID("ABC12-def34"))
	assert.False(t, isValidLeadRecordID("abc1-def34"))
	assert.False(t, isValidLeadRecordID("abc12def34"))
	assert.False(t, isValidLeadRecordID("abc12-def34x"))
	assert.False(t, isValidLeadRecordID(""))
}

func TestIsFutureDate(t *testing.T) {
	assert.True(t, isFutureDate("2999-01-15", fixedNow))
	assert.True(t, isFutureDate("2999-01", fixedNow))
	assert.False(t, isFutureDate("2020-01-15", fixedNow))
	assert.False(t, isFutureDate("2020-01", fixedNow))
	assert.False(t, isFutureDate("not-a-date", fixedNow))
	assert.False(t, isFutureDate("2020", fixedNow))
}

func TestFetchRecordsByDateQuery(t *testing.T) {
	var gotQuery, gotSize, gotSort string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotSize = r.URL.Query().Get("size")
		gotSort = r.URL.Query().Get("sort")
		w.Write([]byte(`{"hits":{"total":1,"hits":[{"id":"abc12-def34"}]}}`))
	}))
	defer srv.Close()

	c := newChecker(srv, &stubAI{}, t.TempDir())
	sources, err := c.FetchRecordsByDate(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "abc12-def34", sources[0].Stem)

	assert.Equal(t, `created:"2026-08-28" AND NOT custom_fields.iaea\:country_of_input.id: xa AND NOT custom_fields.iaea\:qa_checked: (true)`, gotQuery)
	assert.Equal(t, "1000", gotSize)
	assert.Equal(t, "oldest", gotSort)
}

func TestCheckDuplicates(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if strings.Contains(q, "identifiers.identifier") {
			w.Write([]byte(`{"hits":{"total":1,"hits":[]}}`))
			return
		}
		w.Write([]byte(`{"hits":{"total":0,"hits":[]}}`))
	}))
	defer srv.Close()

	repo := &invenio.Client{BaseURL: srv.URL, HTTP: srv.Client(), MaxRetries: 1}
	rec := &types.Record{
		ID: "abc12-def34",
		Metadata: types.Metadata{
			Title: "Neutron flux studies",
			Identifiers: []types.Identifier{
				{Scheme: "doi", Identifier: "10.1000/xyz"},
			},
		},
	}

	flags, err := checkDuplicates(context.Background(), repo, rec)
	require.NoError(t, err)
	assert.True(t, flags.ByDOI)
	assert.False(t, flags.ByTitle)

	require.Len(t, queries, 2)
	assert.Equal(t, `identifiers.identifier:"10.1000/xyz" AND NOT id: abc12-def34`, queries[0])
	assert.Equal(t, `metadata.title:"Neutron flux studies" AND NOT id: abc12-def34`, queries[1])
}

func TestRunWritesReportForCleanRecord(t *testing.T) {
	srv := emptySearchServer(t)
	defer srv.Close()

	outDir := t.TempDir()
	backend := &stubAI{reply: `{"scope_ok": true}`}
	c := newChecker(srv, backend, outDir)

	sources := []Source{{Stem: "abc12-def34", Record: &types.Record{ID: "abc12-def34"}}}
	summary, err := c.Run(context.Background(), sources, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 0, summary.Findings)

	data, err := os.ReadFile(filepath.Join(outDir, "abc12-def34-report.json"))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "abc12-def34", report["record_id"])
	assert.Equal(t, false, report["duplicate_by_title"])
	assert.Equal(t, false, report["duplicate_by_doi"])
}

func TestRunMergesDeterministicRecommendations(t *testing.T) {
	srv := emptySearchServer(t)
	defer srv.Close()

	outDir := t.TempDir()
	backend := &stubAI{reply: `{"recommendations": ["Check descriptors"]}`}
	c := newChecker(srv, backend, outDir)

	rec := &types.Record{
		ID:       "abc12-def34",
		Metadata: types.Metadata{PublicationDate: "2999-01"},
		CustomFields: types.CustomFields{
			types.FieldLeadRecordID: "BAD-ID",
		},
	}
	summary, err := c.Run(context.Background(), []Source{{Stem: "abc12-def34", Record: rec}}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Findings)

	data, err := os.ReadFile(filepath.Join(outDir, "abc12-def34-report.json"))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))

	recs, ok := report["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, recs, 3)
	assert.Equal(t, "Check descriptors", recs[0])
	assert.Equal(t, "Lead Record appears to be invalid: BAD-ID", recs[1])
	assert.Equal(t, "Publication date is in the future: 2999-01", recs[2])
}

func TestRunNonJSONReplyWritesErrorReport(t *testing.T) {
	srv := emptySearchServer(t)
	defer srv.Close()

	outDir := t.TempDir()
	backend := &stubAI{reply: "I cannot produce JSON today."}
	c := newChecker(srv, backend, outDir)

	summary, err := c.Run(context.Background(), []Source{{Stem: "x", Record: &types.Record{ID: "x"}}}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)

	data, err := os.ReadFile(filepath.Join(outDir, "x-report.json"))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Contains(t, report["error"], "Assistant returned non-JSON")
	assert.Equal(t, "I cannot produce JSON today.", report["raw_preview"])
}

func TestRunFencedReplyParsed(t *testing.T) {
	srv := emptySearchServer(t)
	defer srv.Close()

	outDir := t.TempDir()
	backend := &stubAI{reply: "```json\n{\"title_corrected\": true, \"corrections\": {\"title\": \"Fixed\"}}\n```"}
	c := newChecker(srv, backend, outDir)

	summary, err := c.Run(context.Background(), []Source{{Stem: "x", Record: &types.Record{ID: "x"}}}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Findings)

	data, err := os.ReadFile(filepath.Join(outDir, "x-report.json"))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, true, report["title_corrected"])
}

func TestRunAbortsWhenBackendExhausted(t *testing.T) {
	srv := emptySearchServer(t)
	defer srv.Close()

	backend := &stubAI{} // always errors
	c := newChecker(srv, backend, t.TempDir())

	_, err := c.Run(context.Background(), []Source{{Stem: "x", Record: &types.Record{ID: "x"}}}, io.Discard)
	require.Error(t, err)
	assert.ErrorContains(t, err, "after 1 retries")
}

func TestLoadDirSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"id":"abc12-def34"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{nope`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignore`), 0o644))

	var log strings.Builder
	sources, err := LoadDir(dir, &log)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "good", sources[0].Stem)
	assert.Equal(t, "abc12-def34", sources[0].Record.ID)
	assert.Contains(t, log.String(), "bad.json")
}

func TestLoadInstructionsFallback(t *testing.T) {
	assert.Contains(t, LoadInstructions(""), "expert QA checker")
	assert.Contains(t, LoadInstructions(filepath.Join(t.TempDir(), "missing.txt")), "expert QA checker")

	path := filepath.Join(t.TempDir(), "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Review carefully.\n"), 0o644))
	assert.Equal(t, "Review carefully.", LoadInstructions(path))
}
