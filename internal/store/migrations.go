package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations, applied
// idempotently in order by runMigrations. Each migration's version must
// be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS people (
	account_id   TEXT PRIMARY KEY,
	display_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS projects (
	jira_id     INTEGER PRIMARY KEY,
	key         TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT,
	is_archived INTEGER NOT NULL DEFAULT 0 CHECK(is_archived IN (0, 1))
);
CREATE INDEX IF NOT EXISTS idx_projects_key ON projects(key);

CREATE TABLE IF NOT EXISTS fields (
	jira_id    TEXT PRIMARY KEY,
	key        TEXT NOT NULL,
	human_name TEXT NOT NULL,
	schema     TEXT NOT NULL,
	is_custom  INTEGER NOT NULL DEFAULT 0 CHECK(is_custom IN (0, 1))
);

CREATE TABLE IF NOT EXISTS issue_types (
	jira_id     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS issue_type_per_project (
	project_id    INTEGER NOT NULL REFERENCES projects(jira_id),
	issue_type_id INTEGER NOT NULL REFERENCES issue_types(jira_id),
	UNIQUE(project_id, issue_type_id)
);

CREATE TABLE IF NOT EXISTS issues (
	jira_id     INTEGER PRIMARY KEY,
	key         TEXT NOT NULL UNIQUE,
	project_key TEXT NOT NULL REFERENCES projects(key)
);
CREATE INDEX IF NOT EXISTS idx_issues_key ON issues(key);

CREATE TABLE IF NOT EXISTS issue_fields (
	issue_id    INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	field_id    TEXT NOT NULL REFERENCES fields(jira_id),
	field_value TEXT NOT NULL,
	UNIQUE(issue_id, field_id)
);
CREATE INDEX IF NOT EXISTS idx_issue_fields_issue ON issue_fields(issue_id);

CREATE TABLE IF NOT EXISTS issue_link_types (
	jira_id      INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	outward_name TEXT NOT NULL,
	inward_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_links (
	jira_id          INTEGER PRIMARY KEY,
	link_type_id     INTEGER NOT NULL REFERENCES issue_link_types(jira_id),
	outward_issue_id INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	inward_issue_id  INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	CHECK(outward_issue_id <> inward_issue_id)
);
CREATE INDEX IF NOT EXISTS idx_issue_links_outward ON issue_links(outward_issue_id);
CREATE INDEX IF NOT EXISTS idx_issue_links_inward ON issue_links(inward_issue_id);

CREATE TABLE IF NOT EXISTS watchers (
	person TEXT NOT NULL REFERENCES people(account_id),
	issue  INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	UNIQUE(person, issue)
);

CREATE TABLE IF NOT EXISTS attachments (
	uuid         TEXT UNIQUE NOT NULL,
	id           INTEGER PRIMARY KEY,
	issue_id     INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	filename     TEXT NOT NULL,
	mime_type    TEXT,
	file_size    INTEGER NOT NULL,
	content_data BLOB
);
CREATE INDEX IF NOT EXISTS idx_attachments_issue ON attachments(issue_id);

CREATE TABLE IF NOT EXISTS comments (
	id                     INTEGER NOT NULL,
	issue_id               INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	position_in_array      INTEGER NOT NULL,
	content_data           TEXT NOT NULL,
	author                 TEXT NOT NULL REFERENCES people(account_id),
	creation_time          DATETIME NOT NULL,
	last_modification_time DATETIME NOT NULL,
	PRIMARY KEY (id, position_in_array)
);
CREATE INDEX IF NOT EXISTS idx_comments_issue_position ON comments(issue_id, position_in_array);

CREATE TABLE IF NOT EXISTS rendered_artifacts (
	issue_id    INTEGER NOT NULL REFERENCES issues(jira_id) ON DELETE CASCADE,
	format      TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	body        TEXT NOT NULL,
	PRIMARY KEY (issue_id, format)
);

CREATE TABLE IF NOT EXISTS sync_watermark (
	singleton         INTEGER PRIMARY KEY CHECK (singleton = 0),
	last_seen_updated DATETIME NOT NULL,
	last_full_sync_at DATETIME NOT NULL
);
INSERT INTO sync_watermark (singleton, last_seen_updated, last_full_sync_at)
	VALUES (0, '1970-01-01T00:00:00Z', '1970-01-01T00:00:00Z');

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
