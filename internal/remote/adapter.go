package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// fetchFields is a narrow field projection (summary and updated). Issue
// enumeration does not use it: it requests only "key".
var fetchFields = []string{"summary", "updated"}

// SearchPage performs one page of a JQL search, requesting only the
// given fields (or every field the issue carries, if fields is empty).
func (c *Client) SearchPage(ctx context.Context, jql string, startAt, maxResults int, fields []string) (SearchResponse, error) {
	body := map[string]interface{}{
		"jql":        jql,
		"startAt":    startAt,
		"maxResults": maxResults,
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}

	var resp SearchResponse
	if err := c.Post(ctx, "/rest/api/3/search", body, &resp); err != nil {
		return SearchResponse{}, fmt.Errorf("searching (jql=%q, startAt=%d): %w", jql, startAt, err)
	}
	return resp, nil
}

// GetIssue retrieves one issue with every field and every comment. It
// requests expand=names; IssuePayload does not decode the returned
// field-name map.
func (c *Client) GetIssue(ctx context.Context, key string) (IssuePayload, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?expand=names", url.PathEscape(key))
	var issue IssuePayload
	if err := c.Get(ctx, path, &issue); err != nil {
		return IssuePayload{}, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	return issue, nil
}

// GetIssueFields retrieves a narrow field projection of one issue, used
// by watermark polling where only a handful of fields are needed.
func (c *Client) GetIssueFields(ctx context.Context, key string, fields []string) (IssuePayload, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=%s", url.PathEscape(key), strings.Join(fields, ","))
	var issue IssuePayload
	if err := c.Get(ctx, path, &issue); err != nil {
		return IssuePayload{}, fmt.Errorf("fetching fields %v of issue %s: %w", fields, key, err)
	}
	return issue, nil
}

// ListFields retrieves every field definition known to the tenant.
func (c *Client) ListFields(ctx context.Context) ([]FieldDef, error) {
	var defs []FieldDef
	if err := c.Get(ctx, "/rest/api/3/field", &defs); err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return defs, nil
}

// ListIssueTypes retrieves every issue type definition known to the tenant.
func (c *Client) ListIssueTypes(ctx context.Context) ([]IssueTypeDef, error) {
	var defs []IssueTypeDef
	if err := c.Get(ctx, "/rest/api/3/issuetype", &defs); err != nil {
		return nil, fmt.Errorf("listing issue types: %w", err)
	}
	return defs, nil
}

// ListProjectIssueTypes retrieves the issue types enabled on one
// project, keyed by the project's numeric id.
func (c *Client) ListProjectIssueTypes(ctx context.Context, projectID string) ([]IssueTypeDef, error) {
	path := fmt.Sprintf("/rest/api/3/issuetype/project?projectId=%s", url.QueryEscape(projectID))
	var defs []IssueTypeDef
	if err := c.Get(ctx, path, &defs); err != nil {
		return nil, fmt.Errorf("listing issue types for project %s: %w", projectID, err)
	}
	return defs, nil
}

// ListLinkTypes retrieves every issue link type definition known to the tenant.
func (c *Client) ListLinkTypes(ctx context.Context) ([]LinkTypeDef, error) {
	var resp LinkTypesResponse
	if err := c.Get(ctx, "/rest/api/3/issueLinkType", &resp); err != nil {
		return nil, fmt.Errorf("listing link types: %w", err)
	}
	return resp.IssueLinkTypes, nil
}

// ListProjects retrieves every project visible to the authenticated
// user, paging through /project/search until exhausted.
func (c *Client) ListProjects(ctx context.Context) ([]ProjectPayload, error) {
	var all []ProjectPayload
	startAt := 0
	for {
		var resp ProjectSearchResponse
		path := fmt.Sprintf("/rest/api/3/project/search?startAt=%d&maxResults=50", startAt)
		if err := c.Get(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf("listing projects (startAt=%d): %w", startAt, err)
		}
		all = append(all, resp.Values...)
		if resp.IsLast || len(resp.Values) == 0 {
			break
		}
		startAt += len(resp.Values)
	}
	return all, nil
}

// ListWatchers retrieves the full watcher list of one issue; the
// watchCount embedded on the issue payload itself is only a summary.
func (c *Client) ListWatchers(ctx context.Context, key string) ([]UserRef, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s/watchers", url.PathEscape(key))
	var resp WatchersResponse
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing watchers of %s: %w", key, err)
	}
	return resp.Watchers, nil
}

// DownloadAttachment fetches the binary content of one attachment,
// attaching the tenant session cookie alongside basic auth.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID string) (string, []byte, error) {
	path := fmt.Sprintf("/rest/api/3/attachment/content/%s", url.PathEscape(attachmentID))
	mimeType, content, err := c.GetBinary(ctx, path)
	if err != nil {
		return "", nil, fmt.Errorf("downloading attachment %s: %w", attachmentID, err)
	}
	return mimeType, content, nil
}

// IssueSearchJQL builds the JQL used to enumerate every issue of a
// project in creation order, the authoritative visibility oracle for
// full_issue_scan.
func IssueSearchJQL(projectKey string) string {
	return fmt.Sprintf("project=%s ORDER BY created ASC", projectKey)
}

// UpdatedSinceJQL builds the JQL used by refresh_updated to enumerate
// every issue touched at or after watermark, oldest first.
func UpdatedSinceJQL(watermarkRFC3339 string) string {
	return fmt.Sprintf(`updated >= "%s" ORDER BY updated ASC`, watermarkRFC3339)
}
