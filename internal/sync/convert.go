package sync

import (
	"strconv"

	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/remote"
)

// jiraIDOf parses a Jira numeric id string (issue/comment/attachment
// ids are all emitted as strings on the wire despite being integers).
func jiraIDOf(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// peopleOf collects every distinct Person referenced by a fetched
// issue: assignee, reporter, comment authors, and watchers.
func peopleOf(f *fetchedIssue) []model.Person {
	seen := make(map[string]model.Person)
	add := func(u *remote.UserRef) {
		if u == nil || u.AccountID == "" {
			return
		}
		seen[u.AccountID] = model.Person{AccountID: u.AccountID, DisplayName: u.DisplayName}
	}

	add(f.known.Assignee)
	add(f.known.Reporter)
	if f.known.Comment != nil {
		for i := range f.known.Comment.Comments {
			add(&f.known.Comment.Comments[i].Author)
		}
	}
	for i := range f.watchers {
		add(&f.watchers[i])
	}

	people := make([]model.Person, 0, len(seen))
	for _, p := range seen {
		people = append(people, p)
	}
	return people
}

// commentsOf converts the embedded comment page into model.Comment
// rows, preserving array order as PositionInArray.
func commentsOf(issueID int64, known remote.KnownFields) ([]model.Comment, error) {
	if known.Comment == nil {
		return nil, nil
	}
	comments := make([]model.Comment, 0, len(known.Comment.Comments))
	for i, c := range known.Comment.Comments {
		id, err := jiraIDOf(c.ID)
		if err != nil {
			return nil, err
		}
		comments = append(comments, model.Comment{
			ID:                   id,
			IssueID:              issueID,
			PositionInArray:      i,
			ContentData:          string(c.Body),
			Author:               c.Author.AccountID,
			CreationTime:         remote.ParseTime(c.Created),
			LastModificationTime: remote.ParseTime(c.Updated),
		})
	}
	return comments, nil
}

// attachmentsOf converts the embedded attachment list into
// model.Attachment metadata rows; ContentData is left nil, matching
// the read path's lazy-fill contract.
func attachmentsOf(issueID int64, known remote.KnownFields) ([]model.Attachment, error) {
	attachments := make([]model.Attachment, 0, len(known.Attachment))
	for _, a := range known.Attachment {
		id, err := jiraIDOf(a.ID)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, model.Attachment{
			UUID:     a.ID,
			ID:       id,
			IssueID:  issueID,
			Filename: a.Filename,
			MimeType: a.MimeType,
			FileSize: a.Size,
		})
	}
	return attachments, nil
}

// linksOf converts the embedded issue links into model.IssueLink rows,
// keyed by the current issue as the outward endpoint for inward-facing
// entries and vice versa, matching the directed shape of issue links.
func linksOf(issueID int64, known remote.KnownFields) ([]model.IssueLink, error) {
	links := make([]model.IssueLink, 0, len(known.IssueLinks))
	for _, l := range known.IssueLinks {
		linkID, err := jiraIDOf(l.ID)
		if err != nil {
			return nil, err
		}
		typeID, err := jiraIDOf(l.Type.ID)
		if err != nil {
			return nil, err
		}

		var outwardID, inwardID int64
		switch {
		case l.OutwardIssue != nil:
			other, err := jiraIDOf(l.OutwardIssue.ID)
			if err != nil {
				return nil, err
			}
			outwardID, inwardID = issueID, other
		case l.InwardIssue != nil:
			other, err := jiraIDOf(l.InwardIssue.ID)
			if err != nil {
				return nil, err
			}
			outwardID, inwardID = other, issueID
		default:
			continue
		}

		links = append(links, model.IssueLink{
			JiraID:         linkID,
			LinkTypeID:     typeID,
			OutwardIssueID: outwardID,
			InwardIssueID:  inwardID,
		})
	}
	return links, nil
}

// linkTypesOf extracts the distinct link type definitions embedded on
// an issue's links, so ReplaceIssueLinks' foreign key is always
// satisfiable.
func linkTypesOf(known remote.KnownFields) []model.IssueLinkType {
	seen := make(map[string]model.IssueLinkType)
	for _, l := range known.IssueLinks {
		id, err := jiraIDOf(l.Type.ID)
		if err != nil {
			continue
		}
		seen[l.Type.ID] = model.IssueLinkType{
			JiraID:      id,
			Name:        l.Type.Name,
			OutwardName: l.Type.Outward,
			InwardName:  l.Type.Inward,
		}
	}
	out := make([]model.IssueLinkType, 0, len(seen))
	for _, lt := range seen {
		out = append(out, lt)
	}
	return out
}
