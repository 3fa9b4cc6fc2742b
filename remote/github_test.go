package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/navsync"
)

func newTestGitHubStore(t *testing.T, handler http.HandlerFunc) *GitHubStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewGitHubStore(GitHubConfig{
		Owner:   "acme",
		Repo:    "nav-data",
		Token:   "secret",
		BaseURL: srv.URL + "/",
	}, WithHTTPClient(srv.Client()), WithLogger(navsync.NopLogger{}))
	require.NoError(t, err)
	return s
}

func TestNewGitHubStore_Validation(t *testing.T) {
	_, err := NewGitHubStore(GitHubConfig{Owner: "acme"})
	assert.ErrorIs(t, err, navsync.ErrInvalidInput)

	s, err := NewGitHubStore(GitHubConfig{Owner: "acme", Repo: "r"})
	require.NoError(t, err)
	assert.Equal(t, "main", s.cfg.Branch)
	assert.Equal(t, DefaultGitHubBaseURL, s.cfg.BaseURL)
}

func TestGitHubStore_GetFileContent(t *testing.T) {
	s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/nav-data/contents/data/navigation.json", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		encoded := base64.StdEncoding.EncodeToString([]byte(`[{"id":"dev"}]`))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"sha":      "abc",
			"encoding": "base64",
			"content":  encoded[:4] + "\n" + encoded[4:],
		})
	})

	content, err := s.GetFileContent(context.Background(), "data/navigation.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"dev"}]`, content)
}

func TestGitHubStore_GetDirectoryIsNotFound(t *testing.T) {
	s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"type":"file"}]`))
	})
	_, err := s.GetFileContent(context.Background(), "data")
	assert.ErrorIs(t, err, navsync.ErrNotFound)
}

func TestGitHubStore_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		message string
		want    error
	}{
		{name: "not found", status: http.StatusNotFound, want: navsync.ErrNotFound},
		{name: "conflict", status: http.StatusConflict, want: navsync.ErrConflict},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, want: navsync.ErrConflict},
		{name: "unauthorized", status: http.StatusUnauthorized, want: navsync.ErrUnauthorized},
		{name: "too many requests", status: http.StatusTooManyRequests, want: navsync.ErrRateLimited},
		{name: "rate limit header", status: http.StatusForbidden, header: map[string]string{"X-RateLimit-Remaining": "0"}, want: navsync.ErrRateLimited},
		{name: "rate limit message", status: http.StatusForbidden, message: "API rate limit exceeded", want: navsync.ErrRateLimited},
		{name: "forbidden", status: http.StatusForbidden, want: navsync.ErrForbidden},
		{name: "server error", status: http.StatusBadGateway, want: navsync.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": tt.message})
			})
			_, err := s.GetFileContent(context.Background(), "site.json")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGitHubStore_TransportFailure(t *testing.T) {
	s, err := NewGitHubStore(GitHubConfig{Owner: "a", Repo: "b", BaseURL: "http://127.0.0.1:1"},
		WithLogger(navsync.NopLogger{}))
	require.NoError(t, err)
	_, err = s.GetFileContent(context.Background(), "x.json")
	assert.ErrorIs(t, err, navsync.ErrTransport)
}

func TestGitHubStore_UpdateFile(t *testing.T) {
	var put writeRequest
	s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "file", "sha": "old-sha", "content": ""})
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			_ = json.NewEncoder(w).Encode(map[string]any{"commit": map[string]string{"sha": "new-commit"}})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	rev, err := s.UpdateFile(context.Background(), "site.json", `{"a":1}`, "Update site")
	require.NoError(t, err)
	assert.Equal(t, navsync.Revision("new-commit"), rev)
	assert.Equal(t, "old-sha", put.SHA)
	assert.Equal(t, "main", put.Branch)
	assert.Equal(t, "Update site", put.Message)
	decoded, _ := base64.StdEncoding.DecodeString(put.Content)
	assert.Equal(t, `{"a":1}`, string(decoded))
}

func TestGitHubStore_CreateAndDelete(t *testing.T) {
	var methods []string
	s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "file", "sha": "s1"})
		case http.MethodPut:
			var body writeRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Empty(t, body.SHA)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"commit": map[string]string{"sha": "c1"}})
		case http.MethodDelete:
			var body writeRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "s1", body.SHA)
			_ = json.NewEncoder(w).Encode(map[string]any{"commit": map[string]string{"sha": "c2"}})
		}
	})

	rev, err := s.CreateFile(context.Background(), "resources.json", "[]", "Create resources")
	require.NoError(t, err)
	assert.Equal(t, navsync.Revision("c1"), rev)

	rev, err = s.DeleteFile(context.Background(), "resources.json", "Delete resources")
	require.NoError(t, err)
	assert.Equal(t, navsync.Revision("c2"), rev)
	assert.Equal(t, []string{http.MethodPut, http.MethodGet, http.MethodDelete}, methods)
}

func TestGitHubStore_ListCommits(t *testing.T) {
	date := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newTestGitHubStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/nav-data/commits", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "main", r.URL.Query().Get("sha"))
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"sha": "c9",
			"commit": map[string]any{
				"message": "Update navigation",
				"author":  map[string]any{"date": date.Format(time.RFC3339)},
			},
		}})
	})

	commits, err := s.ListCommits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, navsync.Commit{SHA: "c9", Message: "Update navigation", AuthorDate: date}, commits[0])
}
