package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/metrics"
)

// DefaultGitHubBaseURL is the public GitHub REST endpoint.
const DefaultGitHubBaseURL = "https://api.github.com"

// GitHubConfig identifies the repository holding the content files.
type GitHubConfig struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// GitHubStore is a RemoteStore backed by the GitHub contents API.
type GitHubStore struct {
	cfg        GitHubConfig
	httpClient *http.Client
	logger     navsync.Logger
}

// GitHubOption configures a GitHubStore.
type GitHubOption func(*GitHubStore)

func WithHTTPClient(c *http.Client) GitHubOption {
	return func(s *GitHubStore) {
		s.httpClient = c
	}
}

func WithLogger(l navsync.Logger) GitHubOption {
	return func(s *GitHubStore) {
		s.logger = l
	}
}

// NewGitHubStore validates cfg and returns a store. Branch defaults to "main".
func NewGitHubStore(cfg GitHubConfig, opts ...GitHubOption) (*GitHubStore, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: github owner and repo are required", navsync.ErrInvalidInput)
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &GitHubStore{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     navsync.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type contentResponse struct {
	Type     string `json:"type"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type writeResponse struct {
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (s *GitHubStore) contentsURL(path string) string {
	escaped := make([]string, 0)
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.cfg.BaseURL,
		url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), strings.Join(escaped, "/"))
}

// do sends the request and decodes a 2xx JSON body into out.
func (s *GitHubStore) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", navsync.ErrSerialization, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(op, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", navsync.ErrTransport, method, target, err)
	}
	defer resp.Body.Close()
	metrics.RemoteRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", navsync.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug("GitHub request failed", "op", op, "status", resp.StatusCode)
		return statusError(resp, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", navsync.ErrSerialization, err)
	}
	return nil
}

// statusError maps a non-2xx response onto the navsync sentinels.
func statusError(resp *http.Response, payload []byte) error {
	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &apiErr)
	detail := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if apiErr.Message != "" {
		detail += ": " + apiErr.Message
	}

	var sentinel error
	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		sentinel = navsync.ErrNotFound
	case code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		sentinel = navsync.ErrConflict
	case code == http.StatusUnauthorized:
		sentinel = navsync.ErrUnauthorized
	case code == http.StatusTooManyRequests:
		sentinel = navsync.ErrRateLimited
	case code == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || strings.Contains(strings.ToLower(apiErr.Message), "rate limit") {
			sentinel = navsync.ErrRateLimited
		} else {
			sentinel = navsync.ErrForbidden
		}
	default:
		sentinel = navsync.ErrTransport
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}

func (s *GitHubStore) getFile(ctx context.Context, path string) (*contentResponse, error) {
	target := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.cfg.Branch)
	var raw json.RawMessage
	if err := s.do(ctx, OpGet, http.MethodGet, target, nil, &raw); err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if len(raw) > 0 && raw[0] == '[' {
		return nil, fmt.Errorf("%w: %s is a directory", navsync.ErrNotFound, path)
	}
	var c contentResponse
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", navsync.ErrSerialization, path, err)
	}
	if c.Type != "" && c.Type != "file" {
		return nil, fmt.Errorf("%w: %s is not a file", navsync.ErrNotFound, path)
	}
	return &c, nil
}

// GetFileContent returns the decoded file content.
func (s *GitHubStore) GetFileContent(ctx context.Context, path string) (string, error) {
	c, err := s.getFile(ctx, path)
	if err != nil {
		return "", err
	}
	if c.Content == "" {
		return "", nil
	}
	if c.Encoding != "" && c.Encoding != "base64" {
		return c.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", navsync.ErrSerialization, path, err)
	}
	return string(decoded), nil
}

func (s *GitHubStore) put(ctx context.Context, op, path, content, message, sha string) (navsync.Revision, error) {
	body := writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     sha,
		Branch:  s.cfg.Branch,
	}
	var out writeResponse
	if err := s.do(ctx, op, http.MethodPut, s.contentsURL(path), body, &out); err != nil {
		return "", fmt.Errorf("%s %s: %w", op, path, err)
	}
	return navsync.Revision(out.Commit.SHA), nil
}

// CreateFile creates path. GitHub answers 422 when it exists, reported as ErrConflict.
func (s *GitHubStore) CreateFile(ctx context.Context, path, content, message string) (navsync.Revision, error) {
	return s.put(ctx, OpCreate, path, content, message, "")
}

// UpdateFile replaces path at its current revision.
func (s *GitHubStore) UpdateFile(ctx context.Context, path, content, message string) (navsync.Revision, error) {
	c, err := s.getFile(ctx, path)
	if err != nil {
		return "", err
	}
	return s.put(ctx, OpUpdate, path, content, message, c.SHA)
}

// DeleteFile removes path at its current revision.
func (s *GitHubStore) DeleteFile(ctx context.Context, path, message string) (navsync.Revision, error) {
	c, err := s.getFile(ctx, path)
	if err != nil {
		return "", err
	}
	body := writeRequest{Message: message, SHA: c.SHA, Branch: s.cfg.Branch}
	var out writeResponse
	if err := s.do(ctx, OpDelete, http.MethodDelete, s.contentsURL(path), body, &out); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return navsync.Revision(out.Commit.SHA), nil
}

// ListCommits returns the newest commits on the configured branch.
func (s *GitHubStore) ListCommits(ctx context.Context, limit int) ([]navsync.Commit, error) {
	if limit <= 0 {
		limit = 10
	}
	target := fmt.Sprintf("%s/repos/%s/%s/commits?sha=%s&per_page=%d", s.cfg.BaseURL,
		url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), url.QueryEscape(s.cfg.Branch), limit)
	var raw []commitResponse
	if err := s.do(ctx, OpListCommits, http.MethodGet, target, nil, &raw); err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	commits := make([]navsync.Commit, 0, len(raw))
	for _, c := range raw {
		commits = append(commits, navsync.Commit{SHA: c.SHA, Message: c.Commit.Message, AuthorDate: c.Commit.Author.Date})
	}
	return commits, nil
}
