package invenio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inis-qa/pkg/types"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		BaseURL:    srv.URL,
		Token:      "test-token",
		HTTP:       srv.Client(),
		MaxRetries: 1,
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records", r.URL.Path)
		assert.Equal(t, `id:abc12-def34`, r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("size"))
		assert.Equal(t, "oldest", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"hits":{"total":1,"hits":[{"id":"abc12-def34","metadata":{"title":"Reactor physics"}}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	result, err := c.Search(context.Background(), `id:abc12-def34`, 5, "oldest")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "abc12-def34", result.Records[0].ID)
	assert.Equal(t, "Reactor physics", result.Records[0].Metadata.Title)
}

func TestSearchRetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"hits":{"total":0,"hits":[]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	result, err := c.Search(context.Background(), "anything", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 2, calls)
}

func TestGetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records/abc12-def34", r.URL.Path)
		w.Write([]byte(`{"id":"abc12-def34","metadata":{"title":"T"},"custom_fields":{"iaea:qa_checked":true}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	rec, raw, err := c.GetRecord(context.Background(), "abc12-def34")
	require.NoError(t, err)
	assert.Equal(t, "abc12-def34", rec.ID)
	assert.True(t, rec.CustomFields.QAChecked())
	assert.True(t, json.Valid(raw))
}

func TestGetRecordNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, _, err := c.GetRecord(context.Background(), "missing")
	assert.ErrorContains(t, err, "404")
}

func TestDraftFlow(t *testing.T) {
	var gotMethods []string
	var putBody types.Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/records/x1/draft":
			w.Write([]byte(`{"id":"x1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/records/x1/draft":
			w.Write([]byte(`{"id":"x1","metadata":{"title":"Old"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/records/x1/draft":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"id":"x1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/records/x1/draft/actions/publish":
			w.Write([]byte(`{"id":"x1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()

	require.NoError(t, c.NewDraft(ctx, "x1"))

	draft, err := c.GetDraft(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, "Old", draft.Metadata.Title)

	draft.Metadata.Title = "New"
	require.NoError(t, c.UpdateDraft(ctx, "x1", draft))
	assert.Equal(t, "New", putBody.Metadata.Title)

	require.NoError(t, c.Publish(ctx, "x1"))

	assert.Equal(t, []string{
		"POST /api/records/x1/draft",
		"GET /api/records/x1/draft",
		"PUT /api/records/x1/draft",
		"POST /api/records/x1/draft/actions/publish",
	}, gotMethods)
}

func TestNewDraftMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	err := c.NewDraft(context.Background(), "x1")
	assert.ErrorContains(t, err, "no id in response")
}

func TestPublishErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	err := c.Publish(context.Background(), "x1")
	assert.ErrorContains(t, err, "403")
}
