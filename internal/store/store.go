// Package store owns the persistent relational cache: schema,
// migrations, transactions, and prepared queries. It never commits a
// writer transaction implicitly — callers open a Tx, make one or more
// writer calls, then Commit or Rollback it themselves, so that network
// I/O for a sync operation never happens while the writer is held.
package store

import (
	"context"
	"time"

	"github.com/s-d-m/local-jira/internal/model"
)

// FieldBag is an unordered (field_id -> canonicalised JSON value) bag,
// the unit the Diff Engine operates on for a single issue.
type FieldBag map[string]string

// IssueSummary is the minimal projection returned by ListIssueKeys.
type IssueSummary struct {
	JiraID     int64
	Key        string
	ProjectKey string
}

// Store is the typed query/command surface over the local cache.
type Store interface {
	// Readers. Safe to call concurrently with any writer (WAL).

	GetIssueByKey(ctx context.Context, key string) (*model.Issue, error)
	ListIssueKeys(ctx context.Context, projectKey string) ([]IssueSummary, error)
	GetFields(ctx context.Context, issueKey string) (FieldBag, error)
	ListAttachments(ctx context.Context, issueKey string) ([]model.Attachment, error)
	GetAttachmentByUUID(ctx context.Context, uuid string) (*model.Attachment, error)
	GetAttachmentBlob(ctx context.Context, uuid string) ([]byte, error)
	GetRendered(ctx context.Context, issueKey string, format model.Format) (*model.RenderedArtifact, error)
	GetComments(ctx context.Context, issueKey string) ([]model.Comment, error)
	GetWatermark(ctx context.Context) (model.SyncWatermark, error)
	GetProjectByKey(ctx context.Context, key string) (*model.Project, error)
	GetPerson(ctx context.Context, accountID string) (*model.Person, error)

	// Writers. All take an explicit transaction handle; the Store never
	// commits on its own.

	BeginTx(ctx context.Context) (*Tx, error)

	UpsertPerson(ctx context.Context, tx *Tx, p model.Person) error
	UpsertProject(ctx context.Context, tx *Tx, p model.Project) error
	UpsertField(ctx context.Context, tx *Tx, f model.Field) error
	UpsertIssueType(ctx context.Context, tx *Tx, it model.IssueType) error
	UpsertIssueTypePerProject(ctx context.Context, tx *Tx, link model.IssueTypePerProject) error
	UpsertIssue(ctx context.Context, tx *Tx, issue model.Issue) error
	DeleteIssue(ctx context.Context, tx *Tx, jiraID int64) error
	ReplaceIssueFields(ctx context.Context, tx *Tx, issueID int64, fields FieldBag) error
	UpsertIssueLinkType(ctx context.Context, tx *Tx, lt model.IssueLinkType) error
	ReplaceIssueLinks(ctx context.Context, tx *Tx, outwardIssueID int64, links []model.IssueLink) error
	ReplaceWatchers(ctx context.Context, tx *Tx, issueID int64, accountIDs []string) error
	ReplaceAttachmentMetadata(ctx context.Context, tx *Tx, issueID int64, attachments []model.Attachment) error
	SetAttachmentBlob(ctx context.Context, tx *Tx, uuid string, data []byte) error
	ReplaceComments(ctx context.Context, tx *Tx, issueID int64, comments []model.Comment) error
	InvalidateRendered(ctx context.Context, tx *Tx, issueID int64) error
	PutRendered(ctx context.Context, tx *Tx, artifact model.RenderedArtifact) error
	AdvanceWatermark(ctx context.Context, tx *Tx, lastSeenUpdated time.Time) error
	SetLastFullSyncAt(ctx context.Context, tx *Tx, t time.Time) error

	Close() error
}
