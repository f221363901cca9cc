// Package model holds the entities replicated from the remote Jira
// tenant into the local cache, plus the cache's own bookkeeping rows
// (RenderedArtifact, SyncWatermark).
package model

import "time"

// Format identifies a rendering target for an issue's human-readable body.
type Format string

const (
	FormatMarkdown Format = "MARKDOWN"
	FormatHTML     Format = "HTML"
)

// Person is a Jira account, created on first reference in any payload.
// Person rows are never deleted.
type Person struct {
	AccountID   string `db:"account_id"`
	DisplayName string `db:"display_name"`
}

// Project is a Jira project.
type Project struct {
	JiraID      int64   `db:"jira_id"`
	Key         string  `db:"key"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	IsArchived  bool    `db:"is_archived"`
}

// Field is a Jira field definition, e.g. customfield_12345 -> "Country".
type Field struct {
	JiraID    string `db:"jira_id"`
	Key       string `db:"key"`
	HumanName string `db:"human_name"`
	Schema    string `db:"schema"`
	IsCustom  bool   `db:"is_custom"`
}

// IssueType is a Jira issue type definition (Bug, Story, ...).
type IssueType struct {
	JiraID      int64  `db:"jira_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

// IssueTypePerProject records that a given issue type is enabled on a project.
type IssueTypePerProject struct {
	ProjectID   int64 `db:"project_id"`
	IssueTypeID int64 `db:"issue_type_id"`
}

// Issue is a single Jira ticket. ProjectKey must reference an existing
// Project row.
type Issue struct {
	JiraID     int64  `db:"jira_id"`
	Key        string `db:"key"`
	ProjectKey string `db:"project_key"`
}

// IssueField stores one field observed on an issue. FieldValue is the
// canonicalised JSON serialisation of the remote value.
type IssueField struct {
	IssueID    int64  `db:"issue_id"`
	FieldID    string `db:"field_id"`
	FieldValue string `db:"field_value"`
}

// IssueLinkType is a Jira link type definition (e.g. "blocks").
type IssueLinkType struct {
	JiraID      int64  `db:"jira_id"`
	Name        string `db:"name"`
	OutwardName string `db:"outward_name"`
	InwardName  string `db:"inward_name"`
}

// IssueLink is a directed relationship between two issues. OutwardIssueID
// must differ from InwardIssueID.
type IssueLink struct {
	JiraID         int64 `db:"jira_id"`
	LinkTypeID     int64 `db:"link_type_id"`
	OutwardIssueID int64 `db:"outward_issue_id"`
	InwardIssueID  int64 `db:"inward_issue_id"`
}

// Watcher records that a person watches an issue.
type Watcher struct {
	Person string `db:"person"`
	Issue  int64  `db:"issue"`
}

// Attachment is a file attached to an issue. ContentData is populated
// lazily on first read; FileSize always reflects the remote size.
type Attachment struct {
	UUID        string  `db:"uuid"`
	ID          int64   `db:"id"`
	IssueID     int64   `db:"issue_id"`
	Filename    string  `db:"filename"`
	MimeType    *string `db:"mime_type"`
	FileSize    int64   `db:"file_size"`
	ContentData []byte  `db:"content_data"`
}

// Comment is a single comment on an issue, keyed by (ID, PositionInArray).
type Comment struct {
	ID                   int64     `db:"id"`
	IssueID              int64     `db:"issue_id"`
	PositionInArray      int       `db:"position_in_array"`
	ContentData          string    `db:"content_data"`
	Author               string    `db:"author"`
	CreationTime         time.Time `db:"creation_time"`
	LastModificationTime time.Time `db:"last_modification_time"`
}

// RenderedArtifact holds a pre-rendered human-readable view of an issue,
// keyed by (IssueID, Format). SourceHash lets callers detect staleness
// independently of the invalidate-on-write discipline the Synchroniser
// already applies.
type RenderedArtifact struct {
	IssueID    int64  `db:"issue_id"`
	Format     Format `db:"format"`
	SourceHash string `db:"source_hash"`
	Body       string `db:"body"`
}

// SyncWatermark is the process-wide singleton row bounding the earliest
// possibly-stale issue in the store.
type SyncWatermark struct {
	LastSeenUpdated time.Time `db:"last_seen_updated"`
	LastFullSyncAt  time.Time `db:"last_full_sync_at"`
}
