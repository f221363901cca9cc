package remote

import "time"

// jiraTimeLayouts are the timestamp formats Jira Cloud has been
// observed to emit across API versions and locales.
var jiraTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	time.RFC3339,
}

// ParseTime parses a Jira timestamp string, returning the zero Time if
// s is empty or matches none of the known layouts.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range jiraTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
