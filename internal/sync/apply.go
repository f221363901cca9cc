package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/s-d-m/local-jira/internal/diff"
	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/remote"
	"github.com/s-d-m/local-jira/internal/store"
)

// fetchedIssue is everything gathered over the network for one issue
// before the writer transaction opens, per the writer-transaction rule
// that network I/O never happens while the writer is held.
type fetchedIssue struct {
	payload  remote.IssuePayload
	known    remote.KnownFields
	watchers []remote.UserRef
}

// fetchIssue retrieves an issue's full payload and its watcher list.
func (s *Synchroniser) fetchIssue(ctx context.Context, key string) (*fetchedIssue, error) {
	payload, err := s.remote.GetIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	known, err := decodeKnownFields(payload.Fields)
	if err != nil {
		return nil, fmt.Errorf("decoding known fields of %s: %w", key, err)
	}
	watchers, err := s.remote.ListWatchers(ctx, key)
	if err != nil {
		return nil, err
	}
	return &fetchedIssue{payload: payload, known: known, watchers: watchers}, nil
}

// decodeKnownFields re-marshals the raw per-field map into KnownFields,
// recovering the structural fields (project, people, comments,
// attachments, links) this system parses out of the otherwise-opaque
// field bag.
func decodeKnownFields(fields map[string]json.RawMessage) (remote.KnownFields, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return remote.KnownFields{}, err
	}
	var known remote.KnownFields
	if err := json.Unmarshal(raw, &known); err != nil {
		return remote.KnownFields{}, err
	}
	return known, nil
}

// fieldBag canonicalises every raw field value into the bag the Diff
// Engine compares, matching the invariant that the stored set equals
// exactly what the last fetch returned.
func fieldBag(fields map[string]json.RawMessage) (store.FieldBag, error) {
	bag := make(store.FieldBag, len(fields))
	for k, raw := range fields {
		canon, err := diff.Canonicalize(string(raw))
		if err != nil {
			// Keep the field even if it isn't valid JSON (Jira is not
			// guaranteed to only emit JSON-typed scalars); store verbatim.
			bag[k] = string(raw)
			continue
		}
		bag[k] = canon
	}
	return bag, nil
}

// applyIssue runs the apply protocol for one already-fetched issue: diff the field bag against the Store, then — if and
// only if something changed — write everything inside one writer
// transaction and invalidate the rendering cache.
func (s *Synchroniser) applyIssue(ctx context.Context, f *fetchedIssue) (changed, isNew bool, err error) {
	key := f.payload.Key
	newBag, err := fieldBag(f.payload.Fields)
	if err != nil {
		return false, false, err
	}

	oldBag, getErr := s.store.GetFields(ctx, key)
	if getErr != nil && model.KindOf(getErr) != model.NotFound {
		return false, false, getErr
	}
	isNew = getErr != nil && model.KindOf(getErr) == model.NotFound

	fieldDiff := diff.Diff(bagEntries(newBag), bagEntries(oldBag))
	if !isNew && fieldDiff.Empty() {
		return false, false, nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return false, false, err
	}
	if err := s.writeIssue(ctx, tx, f, newBag); err != nil {
		_ = tx.Rollback()
		return false, false, err
	}
	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("committing apply of %s: %w", key, err)
	}

	return true, isNew, nil
}

// writeIssue performs every write of the apply protocol's step 3
// inside the caller's transaction.
func (s *Synchroniser) writeIssue(ctx context.Context, tx *store.Tx, f *fetchedIssue, bag store.FieldBag) error {
	payload := f.payload
	known := f.known

	issueID, err := jiraIDOf(payload.ID)
	if err != nil {
		return fmt.Errorf("parsing issue id %q: %w", payload.ID, err)
	}

	projectKey := ""
	if known.Project != nil {
		projectKey = known.Project.Key
	}

	if err := s.store.UpsertIssue(ctx, tx, model.Issue{
		JiraID:     issueID,
		Key:        payload.Key,
		ProjectKey: projectKey,
	}); err != nil {
		return err
	}

	for _, person := range peopleOf(f) {
		if err := s.store.UpsertPerson(ctx, tx, person); err != nil {
			return err
		}
	}

	if err := s.store.ReplaceIssueFields(ctx, tx, issueID, bag); err != nil {
		return err
	}

	comments, err := commentsOf(issueID, known)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceComments(ctx, tx, issueID, comments); err != nil {
		return err
	}

	attachments, err := attachmentsOf(issueID, known)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceAttachmentMetadata(ctx, tx, issueID, attachments); err != nil {
		return err
	}

	links, err := linksOf(issueID, known)
	if err != nil {
		return err
	}
	for _, lt := range linkTypesOf(known) {
		if err := s.store.UpsertIssueLinkType(ctx, tx, lt); err != nil {
			return err
		}
	}
	if err := s.store.ReplaceIssueLinks(ctx, tx, issueID, links); err != nil {
		return err
	}

	watcherIDs := make([]string, 0, len(f.watchers))
	for _, w := range f.watchers {
		watcherIDs = append(watcherIDs, w.AccountID)
	}
	if err := s.store.ReplaceWatchers(ctx, tx, issueID, watcherIDs); err != nil {
		return err
	}

	if err := s.store.InvalidateRendered(ctx, tx, issueID); err != nil {
		return err
	}

	return nil
}

// bagEntries converts a FieldBag into the ordering-agnostic Entry
// slice the Diff Engine consumes.
func bagEntries(bag store.FieldBag) []diff.Entry {
	entries := make([]diff.Entry, 0, len(bag))
	for k, v := range bag {
		entries = append(entries, diff.Entry{Key: k, Value: v})
	}
	return entries
}
