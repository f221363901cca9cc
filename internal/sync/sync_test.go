package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/s-d-m/local-jira/internal/remote"
	"github.com/s-d-m/local-jira/internal/sync"
	"github.com/s-d-m/local-jira/tests/testutil"
)

// fakeJira serves the handful of Jira Cloud endpoints the Synchroniser
// calls, backed by a single in-memory issue so tests exercise the
// bootstrap -> full scan -> idempotent-reapply path end to end.
func fakeJira(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/project/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote.ProjectSearchResponse{
			Values: []remote.ProjectPayload{{ID: "10000", Key: "PROJ", Name: "Project"}},
			IsLast: true, Total: 1,
		})
	})
	mux.HandleFunc("/rest/api/3/issuetype", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []remote.IssueTypeDef{{ID: "1", Name: "Bug"}})
	})
	mux.HandleFunc("/rest/api/3/issuetype/project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []remote.IssueTypeDef{{ID: "1", Name: "Bug"}})
	})
	mux.HandleFunc("/rest/api/3/field", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []remote.FieldDef{{ID: "summary", Key: "summary", Name: "Summary"}})
	})
	mux.HandleFunc("/rest/api/3/issueLinkType", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote.LinkTypesResponse{})
	})
	mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote.SearchResponse{
			Issues: []remote.IssuePayload{{ID: "30000", Key: "PROJ-1"}},
			Total:  1, IsLast: true,
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PROJ-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote.IssuePayload{
			ID:  "30000",
			Key: "PROJ-1",
			Fields: map[string]json.RawMessage{
				"summary": json.RawMessage(`"hello world"`),
				"project": json.RawMessage(`{"id":"10000","key":"PROJ","name":"Project"}`),
				"updated": json.RawMessage(`"2024-01-01T00:00:00.000+0000"`),
			},
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PROJ-1/watchers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote.WatchersResponse{})
	})

	return httptest.NewServer(mux)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestBootstrapAndIdempotentReapply(t *testing.T) {
	server := fakeJira(t)
	defer server.Close()

	st := testutil.NewTestStore(t)
	client := remote.NewClient(server.URL, "user@example.com", "token", "", 4)
	s := sync.New(st, client, []string{"PROJ"}, nil)

	require.NoError(t, s.Bootstrap(context.Background()))
	require.True(t, s.Bootstrapped())

	issue, err := st.GetIssueByKey(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.NotNil(t, issue)
	require.Equal(t, "PROJ", issue.ProjectKey)

	fields, err := st.GetFields(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Equal(t, `"hello world"`, fields["summary"])

	select {
	case n := <-s.Notifications():
		require.Equal(t, "PROJ-1", n.IssueKey)
		require.Equal(t, sync.ChangeNew, n.Kind)
	default:
		t.Fatal("expected a new-issue notification from bootstrap's full scan")
	}

	// Re-running the scan against an unchanged remote must produce no
	// further writes and no further notification.
	require.NoError(t, s.FullIssueScan(context.Background(), "PROJ"))
	select {
	case n := <-s.Notifications():
		t.Fatalf("unexpected notification on unchanged reapply: %+v", n)
	default:
	}
}
