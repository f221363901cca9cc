// Package render composes the human-readable view of an issue, caching
// the result in the Store's RenderedArtifact table. The actual
// ADF-to-text conversion is an external collaborator: this
// package only decides what to render and assembles the document.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/store"
)

// ADFRenderer converts one ADF-valued field or comment body into a
// string in the requested format. Injected so this package never
// imports a markdown/HTML engine.
type ADFRenderer func(adf json.RawMessage, format model.Format) (string, error)

// Adapter is the Renderer Adapter (E): a thin cache in front of an
// injected ADFRenderer.
type Adapter struct {
	store    store.Store
	renderer ADFRenderer
}

// New creates an Adapter backed by s, using renderer to convert ADF
// bodies into the requested format.
func New(s store.Store, renderer ADFRenderer) *Adapter {
	return &Adapter{store: s, renderer: renderer}
}

// Render returns the human-readable body for issueKey in format,
// serving RenderedArtifact on a cache hit and composing + caching a
// fresh one on a miss.
func (a *Adapter) Render(ctx context.Context, issueKey string, format model.Format) (string, error) {
	if cached, err := a.store.GetRendered(ctx, issueKey, format); err != nil {
		return "", err
	} else if cached != nil {
		return cached.Body, nil
	}

	issue, err := a.store.GetIssueByKey(ctx, issueKey)
	if err != nil {
		return "", err
	}
	if issue == nil {
		return "", model.NewError(model.NotFound, fmt.Sprintf("no such issue %s", issueKey))
	}

	fields, err := a.store.GetFields(ctx, issueKey)
	if err != nil {
		return "", err
	}
	comments, err := a.store.GetComments(ctx, issueKey)
	if err != nil {
		return "", err
	}

	body, sourceHash, err := a.compose(issue, fields, comments, format)
	if err != nil {
		return "", err
	}

	tx, err := a.store.BeginTx(ctx)
	if err != nil {
		return "", err
	}
	if err := a.store.PutRendered(ctx, tx, model.RenderedArtifact{
		IssueID:    issue.JiraID,
		Format:     format,
		SourceHash: sourceHash,
		Body:       body,
	}); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing rendered artifact for %s: %w", issueKey, err)
	}

	return body, nil
}

// compose builds the document: a header block, a key/value table of
// every field (ADF-valued fields passed through the injected renderer),
// then comments in position_in_array order. sourceHash lets callers
// detect staleness independently of invalidate-on-write.
func (a *Adapter) compose(issue *model.Issue, fields store.FieldBag, comments []model.Comment, format model.Format) (body, sourceHash string, err error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", issue.Key)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, renderErr := a.renderFieldValue(fields[k], format)
		if renderErr != nil {
			return "", "", fmt.Errorf("rendering field %s of %s: %w", k, issue.Key, renderErr)
		}
		fmt.Fprintf(&b, "%s: %s\n", k, value)
	}

	if len(comments) > 0 {
		b.WriteString("\n## Comments\n\n")
		for _, c := range comments {
			rendered, renderErr := a.renderer(json.RawMessage(c.ContentData), format)
			if renderErr != nil {
				return "", "", fmt.Errorf("rendering comment %d of %s: %w", c.ID, issue.Key, renderErr)
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n\n", c.CreationTime.Format("2006-01-02T15:04:05Z"), c.Author, rendered)
		}
	}

	body = b.String()
	hash := sha256.Sum256([]byte(body))
	return body, hex.EncodeToString(hash[:]), nil
}

// renderFieldValue passes an ADF document (a JSON object) through the
// injected renderer, since only rich-text fields carry ADF bodies. A
// JSON string is printed as its decoded text, without quotes; any other
// JSON shape (number, array, ...) is printed as its stored JSON text.
func (a *Adapter) renderFieldValue(rawJSON string, format model.Format) (string, error) {
	trimmed := strings.TrimSpace(rawJSON)
	if strings.HasPrefix(trimmed, "{") {
		return a.renderer(json.RawMessage(rawJSON), format)
	}
	var v interface{}
	if err := json.Unmarshal([]byte(rawJSON), &v); err != nil {
		return rawJSON, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return rawJSON, nil
}
