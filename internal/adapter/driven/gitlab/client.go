// Package gitlab implements the GitLabClient port against the GitLab REST API v4.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
	"github.com/ericfisherdev/mrreminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitLabClient = (*Client)(nil)

const (
	// perPage is the largest page size GitLab accepts.
	perPage = 100
	// maxErrorBody caps how much of an error response is kept in APIError.
	maxErrorBody = 2048
)

// APIError is returned when GitLab answers with a non-200 status.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a GitLab 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	ExternalURL      string        // e.g. https://gitlab.com
	Token            string        // Sent as PRIVATE-TOKEN.
	Group            string        // Group ID or full path.
	IncludeSubgroups bool          // List projects of subgroups too.
	Timeout          time.Duration // Per-request bound; zero means no timeout.
	CacheDir         string        // Persist the HTTP cache here; empty keeps it in memory.
}

// Client implements the driven.GitLabClient port.
type Client struct {
	apiURL           string
	token            string
	group            string
	includeSubgroups bool
	httpClient       *http.Client
}

// NewClient creates a GitLab client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, memory or disk)
//  2. net/http with a per-request timeout and no retries
func NewClient(opts Options) *Client {
	var transport *httpcache.Transport
	if opts.CacheDir != "" {
		transport = httpcache.NewTransport(diskcache.New(opts.CacheDir))
	} else {
		transport = httpcache.NewMemoryCacheTransport()
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	return NewClientWithHTTPClient(httpClient, opts)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, opts Options) *Client {
	return &Client{
		apiURL:           strings.TrimRight(opts.ExternalURL, "/") + "/api/v4",
		token:            opts.Token,
		group:            opts.Group,
		includeSubgroups: opts.IncludeSubgroups,
		httpClient:       httpClient,
	}
}

// FetchGroupProjects retrieves every project of the configured group.
// Entries without an id are dropped.
func (c *Client) FetchGroupProjects(ctx context.Context) ([]model.Project, error) {
	query := url.Values{}
	if c.includeSubgroups {
		query.Set("include_subgroups", "true")
	}

	path := "/groups/" + url.PathEscape(c.group) + "/projects"
	raw, err := fetchAll[apiProject](ctx, c, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects of group %s: %w", c.group, err)
	}

	return mapProjects(raw), nil
}

// FetchOpenMergeRequests retrieves every open merge request of a project.
func (c *Client) FetchOpenMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error) {
	query := url.Values{}
	query.Set("state", "opened")

	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)
	raw, err := fetchAll[apiMergeRequest](ctx, c, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing open merge requests of project %d: %w", projectID, err)
	}

	return mapMergeRequests(raw, projectID), nil
}

// FetchMergeRequest retrieves the single merge request view.
func (c *Client) FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*model.MergeRequest, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d", projectID, iid)

	var raw apiMergeRequest
	if _, err := c.doRequest(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching merge request %d!%d: %w", projectID, iid, err)
	}

	mr, err := mapMergeRequest(raw, projectID)
	if err != nil {
		return nil, fmt.Errorf("merge request %d!%d: %w", projectID, iid, err)
	}
	return &mr, nil
}

// FetchDiscussions retrieves all discussion threads of a merge request.
func (c *Client) FetchDiscussions(ctx context.Context, projectID int64, iid int) ([]model.Discussion, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/discussions", projectID, iid)
	raw, err := fetchAll[apiDiscussion](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing discussions of %d!%d: %w", projectID, iid, err)
	}

	return mapDiscussions(raw), nil
}

// FetchApprovals retrieves the approval state of a merge request.
func (c *Client) FetchApprovals(ctx context.Context, projectID int64, iid int) (model.ApprovalState, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/approvals", projectID, iid)

	var raw apiApprovals
	if _, err := c.doRequest(ctx, path, nil, &raw); err != nil {
		return model.ApprovalState{}, fmt.Errorf("fetching approvals of %d!%d: %w", projectID, iid, err)
	}

	return mapApprovals(raw), nil
}

// CurrentUser returns the username the access token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var user apiUser
	if _, err := c.doRequest(ctx, "/user", nil, &user); err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	if user.Username == "" {
		return "", errors.New("token validation failed: empty username")
	}
	return user.Username, nil
}

// fetchAll retrieves every page of a list endpoint. The first page is fetched
// alone to learn X-Total-Pages; the remaining pages are then fetched
// concurrently. Any page failure fails the whole call. Without X-Total-Pages
// (GitLab omits it for very large collections) it follows X-Next-Page.
func fetchAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	first, header, err := fetchPage[T](ctx, c, path, query, 1)
	if err != nil {
		return nil, err
	}

	totalPages, err := strconv.Atoi(header.Get("X-Total-Pages"))
	if err != nil || totalPages < 1 {
		return followNextPages(ctx, c, path, query, first, header)
	}
	if totalPages == 1 {
		return first, nil
	}

	pages := make([][]T, totalPages-1)
	g, gctx := errgroup.WithContext(ctx)
	for page := 2; page <= totalPages; page++ {
		g.Go(func() error {
			items, _, err := fetchPage[T](gctx, c, path, query, page)
			if err != nil {
				return err
			}
			pages[page-2] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("gitlab pages fetched", "path", path, "pages", totalPages)

	all := first
	for _, items := range pages {
		all = append(all, items...)
	}
	return all, nil
}

// followNextPages walks X-Next-Page links sequentially.
func followNextPages[T any](ctx context.Context, c *Client, path string, query url.Values, first []T, header http.Header) ([]T, error) {
	all := first
	current := 1
	for {
		next, err := strconv.Atoi(header.Get("X-Next-Page"))
		if err != nil || next <= current {
			return all, nil
		}

		var items []T
		items, header, err = fetchPage[T](ctx, c, path, query, next)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		current = next
	}
}

// fetchPage retrieves a single page of a list endpoint.
func fetchPage[T any](ctx context.Context, c *Client, path string, query url.Values, page int) ([]T, http.Header, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var items []T
	header, err := c.doRequest(ctx, path, q, &items)
	if err != nil {
		return nil, nil, fmt.Errorf("page %d: %w", page, err)
	}
	return items, header, nil
}

// doRequest performs a GET against the GitLab API and decodes the JSON body.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result any) (http.Header, error) {
	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		// Drain so httpcache stores the body and the connection is reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	slog.Debug("gitlab api call",
		"path", path,
		"page", query.Get("page"),
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
	)

	return resp.Header, nil
}
