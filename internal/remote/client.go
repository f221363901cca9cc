// Package remote is a thin, authenticated HTTP/JSON client for the Jira
// Cloud REST API v3, handling auth, paging, retry, and throttling.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/s-d-m/local-jira/internal/model"
)

// Client is the HTTP transport shared by every remote operation in
// this package. JSON endpoints authenticate with HTTP Basic
// (email:api_token); attachment downloads additionally attach a
// tenant session cookie.
type Client struct {
	baseURL       string
	userEmail     string
	apiToken      string
	sessionCookie string
	httpClient    *http.Client
	sem           *semaphore.Weighted
	maxRetries    int
}

// NewClient creates a client targeting baseURL (the root of the Jira
// Cloud tenant), authenticating with userEmail/apiToken. width bounds
// the number of concurrent outbound requests (W); width <= 0 is
// treated as 1.
func NewClient(baseURL, userEmail, apiToken, sessionCookie string, width int) *Client {
	if width <= 0 {
		width = 1
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		userEmail:     userEmail,
		apiToken:      apiToken,
		sessionCookie: sessionCookie,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		sem:           semaphore.NewWeighted(int64(width)),
		maxRetries:    5,
	}
}

// Get performs an authenticated HTTP GET and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result, false)
}

// Post performs an authenticated HTTP POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result, false)
}

// GetBinary performs an authenticated GET for a binary payload (e.g. an
// attachment download), additionally attaching the tenant session
// cookie, and returns the response content type and body bytes.
func (c *Client) GetBinary(ctx context.Context, path string) (string, []byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", nil, fmt.Errorf("acquiring request slot: %w", err)
	}
	defer c.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return "", nil, fmt.Errorf("creating request: %w", err)
		}
		c.applyAuth(req)
		if c.sessionCookie != "" {
			req.Header.Set("Cookie", c.sessionCookie)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt == 0 {
				lastErr = err
				time.Sleep(1 * time.Second)
				continue
			}
			return "", nil, model.WrapError(model.RemoteUnavailable, "downloading attachment", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", nil, fmt.Errorf("reading attachment body: %w", readErr)
		}

		if shouldRetry, wait := c.retryDecision(resp, attempt); shouldRetry {
			lastErr = fmt.Errorf("status %d on %s", resp.StatusCode, path)
			select {
			case <-ctx.Done():
				return "", nil, ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		if err := c.classifyStatus(resp.StatusCode, path, body); err != nil {
			return "", nil, err
		}

		return resp.Header.Get("Content-Type"), body, nil
	}

	return "", nil, model.WrapError(model.RemoteUnavailable,
		fmt.Sprintf("max retries (%d) exceeded downloading %s", c.maxRetries, path), lastErr)
}

// do is the core HTTP method: builds the request, applies auth,
// retries on 429/503 honouring Retry-After with exponential backoff
// (base 250ms, cap 30s) up to maxRetries, retries network errors once
// after 1s, and leaves other 4xx unretried.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	body, result interface{},
	_ bool,
) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring request slot: %w", err)
	}
	defer c.sem.Release(1)

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		c.applyAuth(req)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt == 0 {
				lastErr = err
				time.Sleep(1 * time.Second)
				continue
			}
			return model.WrapError(model.RemoteUnavailable,
				fmt.Sprintf("executing %s %s", method, path), err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if shouldRetry, wait := c.retryDecision(resp, attempt); shouldRetry {
			lastErr = fmt.Errorf("status %d on %s %s", resp.StatusCode, method, path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		if err := c.classifyStatus(resp.StatusCode, path, respBody); err != nil {
			return err
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	return model.WrapError(model.RemoteUnavailable,
		fmt.Sprintf("max retries (%d) exceeded on %s", c.maxRetries, path), lastErr)
}

func (c *Client) applyAuth(req *http.Request) {
	req.SetBasicAuth(c.userEmail, c.apiToken)
}

// retryDecision reports whether a response warrants a retry (429 or
// 503) and, if so, how long to wait: the Retry-After header when
// present, else exponential backoff (base 250ms, cap 30s).
func (c *Client) retryDecision(resp *http.Response, attempt int) (bool, time.Duration) {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return false, 0
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return true, time.Duration(seconds) * time.Second
		}
	}
	backoff := 250 * time.Millisecond * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return true, backoff
}

// classifyStatus turns a non-2xx, non-retried response into a typed
// *model.Error.
func (c *Client) classifyStatus(status int, path string, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return model.NewError(model.Unauthorized,
			fmt.Sprintf("authentication rejected (%d) on %s", status, path))
	}

	var jiraErr ErrorResponse
	if json.Unmarshal(body, &jiraErr) == nil &&
		(len(jiraErr.ErrorMessages) > 0 || len(jiraErr.Errors) > 0) {
		return model.NewError(model.InvalidParameter,
			fmt.Sprintf("jira API error (%d) on %s: %s %v",
				status, path, strings.Join(jiraErr.ErrorMessages, "; "), jiraErr.Errors))
	}

	return model.NewError(model.RemoteUnavailable,
		fmt.Sprintf("unexpected status %d on %s: %s", status, path, string(body)))
}
