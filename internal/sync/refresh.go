package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/s-d-m/local-jira/internal/remote"
)

// RefreshUpdated is the incremental entry point: it pages through
// every issue touched at or after the watermark, fetches each fully,
// applies it, and advances SyncWatermark.last_seen_updated to the
// maximum "updated" observed.
func (s *Synchroniser) RefreshUpdated(ctx context.Context) error {
	s.setRunning()
	defer s.setIdleUnlessErrored()

	watermark, err := s.store.GetWatermark(ctx)
	if err != nil {
		s.setErrored(err)
		return err
	}

	keys, err := s.enumerateKeys(ctx, remote.UpdatedSinceJQL(watermark.LastSeenUpdated.UTC().Format(time.RFC3339)))
	if err != nil {
		s.setErrored(err)
		return err
	}

	var maxUpdated time.Time
	for _, key := range keys {
		f, err := s.fetchIssue(ctx, key)
		if err != nil {
			s.setErrored(err)
			return fmt.Errorf("refreshing %s: %w", key, err)
		}

		updated := remote.ParseTime(f.known.Updated)
		if updated.After(maxUpdated) {
			maxUpdated = updated
		}

		changed, isNew, err := s.applyIssue(ctx, f)
		if err != nil {
			s.setErrored(err)
			return fmt.Errorf("applying %s: %w", key, err)
		}
		if changed {
			s.emitChange(key, isNew)
		}
	}

	if !maxUpdated.IsZero() {
		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			s.setErrored(err)
			return err
		}
		if err := s.store.AdvanceWatermark(ctx, tx, maxUpdated); err != nil {
			_ = tx.Rollback()
			s.setErrored(err)
			return err
		}
		if err := tx.Commit(); err != nil {
			s.setErrored(err)
			return fmt.Errorf("committing watermark advance: %w", err)
		}
	}

	return nil
}

// RefreshIssue is the on-demand refresh of one issue, used by read
// paths and SYNCHRONISE_TICKET. It never advances the global watermark:
// only refresh_updated does, since a single-issue refresh cannot prove
// no other issue was modified in between.
func (s *Synchroniser) RefreshIssue(ctx context.Context, key string) error {
	s.setRunning()
	defer s.setIdleUnlessErrored()

	f, err := s.fetchIssue(ctx, key)
	if err != nil {
		s.setErrored(err)
		return fmt.Errorf("refreshing %s: %w", key, err)
	}

	changed, isNew, err := s.applyIssue(ctx, f)
	if err != nil {
		s.setErrored(err)
		return fmt.Errorf("applying %s: %w", key, err)
	}
	if changed {
		s.emitChange(key, isNew)
	}
	return nil
}

// FullIssueScan enumerates every key the remote reports visible for
// project, diffs that set against the Store's known keys, inserts
// anything missing or newly visible, and deletes anything the remote
// no longer reports. Issue-key enumeration is the authoritative
// visibility oracle: this is how tickets that transition
// from restricted to visible enter the cache.
func (s *Synchroniser) FullIssueScan(ctx context.Context, projectKey string) error {
	s.setRunning()
	defer s.setIdleUnlessErrored()

	remoteKeys, err := s.enumerateKeys(ctx, remote.IssueSearchJQL(projectKey))
	if err != nil {
		s.setErrored(err)
		return err
	}
	remoteKeySet := make(map[string]struct{}, len(remoteKeys))
	for _, k := range remoteKeys {
		remoteKeySet[k] = struct{}{}
	}

	localIssues, err := s.store.ListIssueKeys(ctx, projectKey)
	if err != nil {
		s.setErrored(err)
		return err
	}

	for _, key := range remoteKeys {
		f, err := s.fetchIssue(ctx, key)
		if err != nil {
			s.setErrored(err)
			return fmt.Errorf("scanning %s: %w", key, err)
		}
		changed, isNew, err := s.applyIssue(ctx, f)
		if err != nil {
			s.setErrored(err)
			return fmt.Errorf("applying %s: %w", key, err)
		}
		if changed {
			s.emitChange(key, isNew)
		}
	}

	for _, local := range localIssues {
		if _, ok := remoteKeySet[local.Key]; ok {
			continue
		}
		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			s.setErrored(err)
			return err
		}
		if err := s.store.DeleteIssue(ctx, tx, local.JiraID); err != nil {
			_ = tx.Rollback()
			s.setErrored(err)
			return fmt.Errorf("deleting vanished issue %s: %w", local.Key, err)
		}
		if err := tx.Commit(); err != nil {
			s.setErrored(err)
			return fmt.Errorf("committing deletion of %s: %w", local.Key, err)
		}
	}

	if err := s.recordFullSync(ctx); err != nil {
		s.setErrored(err)
		return err
	}

	return nil
}

// enumerateKeys pages jql to exhaustion, requesting only the "key"
// field, and returns every issue key observed in order.
func (s *Synchroniser) enumerateKeys(ctx context.Context, jql string) ([]string, error) {
	var keys []string
	startAt := 0
	for {
		page, err := s.remote.SearchPage(ctx, jql, startAt, searchPageSize, []string{"key"})
		if err != nil {
			return nil, err
		}
		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}
		startAt += len(page.Issues)
		if page.IsLast || len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	return keys, nil
}

func (s *Synchroniser) recordFullSync(ctx context.Context) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SetLastFullSyncAt(ctx, tx, time.Now()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Synchroniser) emitChange(key string, isNew bool) {
	kind := ChangeUpdated
	if isNew {
		kind = ChangeNew
	}
	s.notify(Notification{Kind: kind, IssueKey: key})
}

// setIdleUnlessErrored is called via defer so an already-recorded error
// status from setErrored is not clobbered back to idle.
func (s *Synchroniser) setIdleUnlessErrored() {
	s.mu.Lock()
	errored := s.status.State == Errored
	s.mu.Unlock()
	if !errored {
		s.setIdle()
	}
}
