package model

// Config is the record yielded by the configuration loader (an external
// collaborator per the system's scope: this struct is consumed, not
// produced, by the core).
type Config struct {
	JiraBaseURL           string   `mapstructure:"jira_base_url" yaml:"jira_base_url"`
	UserEmail             string   `mapstructure:"user_email" yaml:"user_email"`
	APIToken              string   `mapstructure:"api_token" yaml:"api_token"`
	SessionCookie         string   `mapstructure:"session_cookie" yaml:"session_cookie"`
	DatabasePath          string   `mapstructure:"database_path" yaml:"database_path"`
	Projects              []string `mapstructure:"projects" yaml:"projects"`
	SyncIntervalSeconds   int      `mapstructure:"sync_interval_seconds" yaml:"sync_interval_seconds"`
	MaxConcurrentRequests int      `mapstructure:"max_concurrent_requests" yaml:"max_concurrent_requests"`
	MaxAttachmentBytes    int64    `mapstructure:"max_attachment_bytes" yaml:"max_attachment_bytes"`
}
