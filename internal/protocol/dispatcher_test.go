package protocol_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/protocol"
	"github.com/s-d-m/local-jira/internal/remote"
	"github.com/s-d-m/local-jira/internal/render"
	"github.com/s-d-m/local-jira/internal/sync"
	"github.com/s-d-m/local-jira/tests/testutil"
)

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

// plainTextADFRenderer treats every ADF document as already-plain text,
// good enough to exercise the Renderer Adapter without a real markdown
// or HTML engine in this test.
func plainTextADFRenderer(adf json.RawMessage, format model.Format) (string, error) {
	return string(adf), nil
}

func newDispatcherUnderTest(t *testing.T) (*protocol.Dispatcher, *sync.Synchroniser) {
	t.Helper()
	server := fakeJira(t)
	t.Cleanup(server.Close)

	st := testutil.NewTestStore(t)
	client := remote.NewClient(server.URL, "user@example.com", "token", "", 4)
	synch := sync.New(st, client, []string{"PROJ"}, nil)
	require.NoError(t, synch.Bootstrap(context.Background()))

	renderer := render.New(st, plainTextADFRenderer)
	d := protocol.New(st, synch, renderer, []string{"PROJ"}, nil)
	return d, synch
}

func runDispatcher(t *testing.T, d *protocol.Dispatcher, input string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, strings.NewReader(input), &out)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("dispatcher did not finish within the test deadline")
	}
	return out.String()
}

func TestDispatcherFetchTicketKeyValueFields(t *testing.T) {
	d, _ := newDispatcherUnderTest(t)

	output := runDispatcher(t, d, "r1 FETCH_TICKET_KEY_VALUE_FIELDS PROJ-1\nx1 EXIT_SERVER_NOW\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")

	require.Contains(t, lines, "r1 ACK")
	require.Contains(t, lines, "x1 ACK")
	require.Contains(t, lines, "x1 FINISHED")
	require.True(t, containsPrefix(lines, "r1 RESULT summary:"))
}

func TestDispatcherUnknownTicketIsErrorThenFinished(t *testing.T) {
	d, _ := newDispatcherUnderTest(t)

	output := runDispatcher(t, d, "r1 FETCH_TICKET_KEY_VALUE_FIELDS NOSUCH-1\nx1 EXIT_SERVER_NOW\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")

	require.Contains(t, lines, "r1 ACK")
	require.True(t, containsPrefix(lines, "r1 ERROR"))
	require.Contains(t, lines, "r1 FINISHED")
	require.False(t, containsPrefix(lines, "r1 RESULT"))
}

func TestDispatcherMalformedTokenProducesUnsolicitedErrorOnly(t *testing.T) {
	d, _ := newDispatcherUnderTest(t)

	output := runDispatcher(t, d, "abc_def FETCH_TICKET PROJ-1,HTML\nx1 EXIT_SERVER_NOW\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")

	require.Contains(t, lines, "_ ERROR malformed token")
	require.False(t, containsPrefix(lines, "abc_def"))
}

func TestDispatcherExitAfterRequestsDrainsThenFinishes(t *testing.T) {
	d, _ := newDispatcherUnderTest(t)

	output := runDispatcher(t, d,
		"r1 FETCH_TICKET_LIST\nx1 EXIT_SERVER_AFTER_REQUESTS\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")

	r1Finished := indexOf(lines, "r1 FINISHED")
	x1Finished := indexOf(lines, "x1 FINISHED")
	require.GreaterOrEqual(t, r1Finished, 0)
	require.GreaterOrEqual(t, x1Finished, 0)
	require.Less(t, r1Finished, x1Finished)
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func indexOf(lines []string, exact string) int {
	for i, l := range lines {
		if l == exact {
			return i
		}
	}
	return -1
}
