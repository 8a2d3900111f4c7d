package gitlab_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glAdapter "github.com/ericfisherdev/mrreminder/internal/adapter/driven/gitlab"
	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler, opts glAdapter.Options) *glAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.ExternalURL = server.URL + "/"
	if opts.Token == "" {
		opts.Token = "glpat-test"
	}
	if opts.Group == "" {
		opts.Group = "platform"
	}
	return glAdapter.NewClientWithHTTPClient(server.Client(), opts)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// pageCounter records how often each page of an endpoint was requested.
type pageCounter struct {
	mu    sync.Mutex
	pages map[string]int
}

func (c *pageCounter) hit(page string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages == nil {
		c.pages = make(map[string]int)
	}
	c.pages[page]++
}

func (c *pageCounter) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.pages))
	for k, v := range c.pages {
		out[k] = v
	}
	return out
}

func TestFetchGroupProjects_Pagination(t *testing.T) {
	var counter pageCounter
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/groups/platform/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "glpat-test", r.Header.Get("PRIVATE-TOKEN"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		counter.hit(page)
		n, _ := strconv.Atoi(page)

		w.Header().Set("X-Total-Pages", "3")
		writeJSON(t, w, []map[string]any{
			{"id": n*10 + 1, "path_with_namespace": fmt.Sprintf("platform/p%d-a", n)},
			{"id": n*10 + 2, "path_with_namespace": fmt.Sprintf("platform/p%d-b", n)},
		})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	projects, err := client.FetchGroupProjects(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, counter.snapshot())
	require.Len(t, projects, 6)
	assert.Equal(t, model.Project{ID: 11, Name: "platform/p1-a"}, projects[0])
	assert.Equal(t, model.Project{ID: 32, Name: "platform/p3-b"}, projects[5])

	seen := make(map[int64]bool)
	for _, p := range projects {
		assert.False(t, seen[p.ID], "duplicate project %d", p.ID)
		seen[p.ID] = true
	}
}

func TestFetchGroupProjects_DropsInvalidAndDuplicateEntries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/groups/platform/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_subgroups"))
		w.Header().Set("X-Total-Pages", "1")
		writeJSON(t, w, []map[string]any{
			{"id": 1, "name": "api"},
			{"name": "no-id"},
			{"id": 1, "name": "api"},
		})
	})

	client := newTestClient(t, mux, glAdapter.Options{IncludeSubgroups: true})

	projects, err := client.FetchGroupProjects(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Project{{ID: 1, Name: "api"}}, projects)
}

func TestFetchGroupProjects_EscapesGroupPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/groups/platform%2Fbackend/projects", r.URL.EscapedPath())
		writeJSON(t, w, []map[string]any{})
	})

	client := newTestClient(t, mux, glAdapter.Options{Group: "platform/backend"})

	projects, err := client.FetchGroupProjects(context.Background())

	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestFetchOpenMergeRequests_FollowsNextPage(t *testing.T) {
	var counter pageCounter
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/7/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "opened", r.URL.Query().Get("state"))

		page := r.URL.Query().Get("page")
		counter.hit(page)
		n, _ := strconv.Atoi(page)
		if n < 2 {
			w.Header().Set("X-Next-Page", strconv.Itoa(n+1))
		}
		writeJSON(t, w, []map[string]any{{
			"id":     100 + n,
			"iid":    n,
			"title":  fmt.Sprintf("MR %d", n),
			"author": map[string]any{"username": "carol"},
		}})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	mrs, err := client.FetchOpenMergeRequests(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, counter.snapshot())
	require.Len(t, mrs, 2)
	assert.Equal(t, 1, mrs[0].IID)
	assert.Equal(t, 2, mrs[1].IID)
	assert.Equal(t, int64(7), mrs[1].ProjectID)
}

func TestFetchOpenMergeRequests_MapsFields(t *testing.T) {
	updated := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/7/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Pages", "1")
		writeJSON(t, w, []map[string]any{
			{
				"id":                    500,
				"iid":                   3,
				"project_id":            7,
				"title":                 "Draft: rework cache",
				"draft":                 true,
				"web_url":               "https://gitlab.example.com/mr/3",
				"detailed_merge_status": "requested_changes",
				"author":                map[string]any{"username": "carol"},
				"assignee":              map[string]any{"username": "bob"},
				"reviewers":             []map[string]any{{"username": "dave"}},
				"created_at":            updated.Add(-48 * time.Hour).Format(time.RFC3339),
				"updated_at":            updated.Format(time.RFC3339),
			},
			{"id": 501, "iid": 4, "title": "no author"},
			{"id": 502, "title": "no iid", "author": map[string]any{"username": "carol"}},
		})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	mrs, err := client.FetchOpenMergeRequests(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, mrs, 1)
	mr := mrs[0]
	assert.Equal(t, int64(500), mr.ID)
	assert.Equal(t, 3, mr.IID)
	assert.True(t, mr.WorkInProgress)
	assert.Equal(t, model.MergeStatusRequestedChanges, mr.DetailedMergeStatus)
	assert.Equal(t, []string{"bob"}, mr.Assignees)
	assert.Equal(t, []string{"dave"}, mr.Reviewers)
	assert.True(t, updated.Equal(mr.UpdatedAt))
}

func TestFetchOpenMergeRequests_PageFailureFailsCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/7/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Total-Pages", "2")
		writeJSON(t, w, []map[string]any{})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	_, err := client.FetchOpenMergeRequests(context.Background(), 7)

	require.Error(t, err)
	var apiErr *glAdapter.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
}

func TestFetchMergeRequest_NotFound(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), glAdapter.Options{})

	_, err := client.FetchMergeRequest(context.Background(), 7, 3)

	require.Error(t, err)
	assert.True(t, glAdapter.IsNotFound(err))
}

func TestFetchDiscussions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/7/merge_requests/3/discussions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Pages", "1")
		writeJSON(t, w, []map[string]any{{
			"id": "abc",
			"notes": []map[string]any{
				{"id": 1, "author": map[string]any{"username": "alice"}, "created_at": "2026-03-10T08:00:00Z", "resolvable": true, "resolved": false},
				{"id": 2, "author": map[string]any{}, "created_at": "2026-03-10T09:00:00Z"},
			},
		}})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	discussions, err := client.FetchDiscussions(context.Background(), 7, 3)

	require.NoError(t, err)
	require.Len(t, discussions, 1)
	assert.Equal(t, "abc", discussions[0].ID)
	require.Len(t, discussions[0].Notes, 1)
	assert.Equal(t, "alice", discussions[0].Notes[0].Author)
	assert.True(t, discussions[0].HasUnresolvedNotes())
}

func TestFetchApprovals(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/7/merge_requests/3/approvals", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"approvers": []map[string]any{
				{"username": "bob", "approved": false},
				{"user": map[string]any{"username": "dave"}, "approved": true},
			},
			"approved_by": []map[string]any{
				{"user": map[string]any{"username": "erin"}},
			},
		})
	})

	client := newTestClient(t, mux, glAdapter.Options{})

	state, err := client.FetchApprovals(context.Background(), 7, 3)

	require.NoError(t, err)
	assert.Equal(t, []model.Approver{
		{Username: "bob", Approved: false},
		{Username: "dave", Approved: true},
	}, state.Approvers)
	assert.Equal(t, []string{"erin"}, state.ApprovedBy)
	assert.Equal(t, []string{"erin", "dave"}, state.ApprovedUsernames())
	assert.Equal(t, []string{"bob"}, state.PendingApprovers())
}

func TestCurrentUser(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v4/user", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"username": "reminder-bot"})
		})
		client := newTestClient(t, mux, glAdapter.Options{})

		username, err := client.CurrentUser(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "reminder-bot", username)
	})

	t.Run("rejected token", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v4/user", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
		})
		client := newTestClient(t, mux, glAdapter.Options{})

		_, err := client.CurrentUser(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "token validation failed")
		assert.Contains(t, err.Error(), "401")
	})
}

func TestNewClient_UsesCachingTransport(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		writeJSON(t, w, map[string]any{"username": "reminder-bot"})
	}))
	t.Cleanup(server.Close)

	client := glAdapter.NewClient(glAdapter.Options{
		ExternalURL: server.URL,
		Token:       "glpat-test",
		Group:       "platform",
		Timeout:     5 * time.Second,
	})

	for range 2 {
		username, err := client.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "reminder-bot", username)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}
