package sync

import (
	"context"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/remote"
)

const searchPageSize = 100

// Bootstrap is the initial population entry point. For every
// configured project it refreshes project metadata, issue types, field
// definitions and link types, then runs a full_issue_scan. Runs exactly
// once per process lifetime, the first time the Store is found empty;
// the caller (cmd/local-jira) is responsible for that emptiness check
// and for calling this at most once.
func (s *Synchroniser) Bootstrap(ctx context.Context) error {
	s.setRunning()

	if err := s.refreshGlobalDefinitions(ctx); err != nil {
		s.setErrored(err)
		return fmt.Errorf("bootstrap: refreshing global definitions: %w", err)
	}

	for _, project := range s.projects {
		if err := s.FullIssueScan(ctx, project); err != nil {
			s.setErrored(err)
			return fmt.Errorf("bootstrap: scanning project %s: %w", project, err)
		}
	}

	s.mu.Lock()
	s.bootstrapped = true
	s.mu.Unlock()
	s.setIdle()
	return nil
}

// refreshGlobalDefinitions fetches projects, issue types, fields,
// link types, and each matched project's enabled issue types — the
// tenant-wide definitions every issue references.
func (s *Synchroniser) refreshGlobalDefinitions(ctx context.Context) error {
	projects, err := s.remote.ListProjects(ctx)
	if err != nil {
		return err
	}
	issueTypes, err := s.remote.ListIssueTypes(ctx)
	if err != nil {
		return err
	}
	fields, err := s.remote.ListFields(ctx)
	if err != nil {
		return err
	}
	linkTypes, err := s.remote.ListLinkTypes(ctx)
	if err != nil {
		return err
	}

	projectIssueTypes := make(map[string][]remote.IssueTypeDef, len(projects))
	for _, p := range projects {
		if !containsProject(s.projects, p.Key) {
			continue
		}
		defs, err := s.remote.ListProjectIssueTypes(ctx, p.ID)
		if err != nil {
			return err
		}
		projectIssueTypes[p.ID] = defs
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	for _, p := range projects {
		if !containsProject(s.projects, p.Key) {
			continue
		}
		id, convErr := jiraIDOf(p.ID)
		if convErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("parsing project id %q: %w", p.ID, convErr)
		}
		var description *string
		if p.Description != "" {
			description = &p.Description
		}
		if err := s.store.UpsertProject(ctx, tx, model.Project{
			JiraID:      id,
			Key:         p.Key,
			Name:        p.Name,
			Description: description,
			IsArchived:  p.Archived,
		}); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, it := range issueTypes {
		id, convErr := jiraIDOf(it.ID)
		if convErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("parsing issue type id %q: %w", it.ID, convErr)
		}
		if err := s.store.UpsertIssueType(ctx, tx, model.IssueType{
			JiraID:      id,
			Name:        it.Name,
			Description: it.Description,
		}); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, p := range projects {
		defs, ok := projectIssueTypes[p.ID]
		if !ok {
			continue
		}
		projectID, convErr := jiraIDOf(p.ID)
		if convErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("parsing project id %q: %w", p.ID, convErr)
		}
		for _, it := range defs {
			issueTypeID, convErr := jiraIDOf(it.ID)
			if convErr != nil {
				_ = tx.Rollback()
				return fmt.Errorf("parsing issue type id %q: %w", it.ID, convErr)
			}
			if err := s.store.UpsertIssueTypePerProject(ctx, tx, model.IssueTypePerProject{
				ProjectID:   projectID,
				IssueTypeID: issueTypeID,
			}); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}

	for _, def := range fields {
		schema := "{}"
		if len(def.Schema) > 0 {
			schema = string(def.Schema)
		}
		if err := s.store.UpsertField(ctx, tx, model.Field{
			JiraID:    def.ID,
			Key:       def.Key,
			HumanName: def.Name,
			Schema:    schema,
			IsCustom:  def.Custom,
		}); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, lt := range linkTypes {
		id, convErr := jiraIDOf(lt.ID)
		if convErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("parsing link type id %q: %w", lt.ID, convErr)
		}
		if err := s.store.UpsertIssueLinkType(ctx, tx, model.IssueLinkType{
			JiraID:      id,
			Name:        lt.Name,
			OutwardName: lt.Outward,
			InwardName:  lt.Inward,
		}); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func containsProject(projects []string, key string) bool {
	if len(projects) == 0 {
		return true
	}
	for _, p := range projects {
		if p == key {
			return true
		}
	}
	return false
}
