package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/lb/internal/linear"
	"github.com/steveyegge/lb/internal/types"
)

// PushOutbox drains the queue head-to-tail once. Transient failures keep
// their row (with retry bookkeeping) and do not stop the drain; the counts
// are reported to the caller.
func (s *Syncer) PushOutbox(ctx context.Context) (pushed, failed int) {
	if s.cfg.LocalOnly || s.client == nil {
		return 0, 0
	}

	items, err := s.store.ListOutbox()
	if err != nil {
		return 0, 0
	}
	for _, item := range items {
		if err := s.Execute(ctx, item); err != nil {
			failed++
			_ = s.store.FailOutbox(item.ID, err)
			s.log.Printf("outbox %d (%s) failed: %v", item.ID, item.Operation, err)
			if !types.IsTransient(err) && errors.Is(err, types.ErrAuth) {
				return pushed, failed
			}
			continue
		}
		pushed++
		_ = s.store.AckOutbox(item.ID)
	}
	return pushed, failed
}

// Execute replays one outbox row against the Remote and reconciles the cache
// with the Remote's answer.
func (s *Syncer) Execute(ctx context.Context, item *types.OutboxItem) error {
	switch item.Operation {
	case types.OpCreate:
		var p types.CreatePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding create payload: %v", types.ErrValidation, err)
		}
		_, err := s.CreateRemote(ctx, &p)
		return err
	case types.OpUpdate:
		var p types.UpdatePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding update payload: %v", types.ErrValidation, err)
		}
		_, err := s.UpdateRemote(ctx, &p)
		return err
	case types.OpClose:
		var p types.ClosePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding close payload: %v", types.ErrValidation, err)
		}
		_, err := s.CloseRemote(ctx, &p)
		return err
	case types.OpDelete:
		var p types.DeletePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding delete payload: %v", types.ErrValidation, err)
		}
		return s.DeleteRemote(ctx, &p)
	case types.OpCreateRelation:
		var p types.RelationPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding relation payload: %v", types.ErrValidation, err)
		}
		return s.CreateRelationRemote(ctx, &p)
	case types.OpDeleteRelation:
		var p types.RelationPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("%w: decoding relation payload: %v", types.ErrValidation, err)
		}
		return s.DeleteRelationRemote(ctx, &p)
	}
	return fmt.Errorf("%w: unknown outbox operation %q", types.ErrValidation, item.Operation)
}

// buildInput translates canonical fields into a Remote issue input, resolving
// workflow state, labels, and assignee as needed. The project is not set here.
func (s *Syncer) buildInput(ctx context.Context, status *types.Status, priority *int,
	issueType *types.IssueType, assignee *string) (linear.IssueInput, error) {

	in := linear.IssueInput{}
	team, err := s.ResolveTeam(ctx)
	if err != nil {
		return in, err
	}

	if status != nil {
		stateID, err := s.client.StateIDFor(ctx, team.ID, *status)
		if err != nil {
			return in, err
		}
		in.StateID = &stateID
	}
	if priority != nil {
		remote := linear.PriorityToRemote(*priority)
		in.Priority = &remote
	}
	if issueType != nil && *issueType != "" && s.cfg.UseIssueTypes {
		labelIDs, err := s.scopeAndTypeLabels(ctx, *issueType)
		if err != nil {
			return in, err
		}
		in.LabelIDs = labelIDs
	}
	if assignee != nil {
		if *assignee == "" {
			empty := ""
			in.AssigneeID = &empty
		} else {
			user, err := s.client.UserByEmail(ctx, *assignee)
			if err != nil {
				return in, err
			}
			in.AssigneeID = &user.ID
		}
	}
	return in, nil
}

// scopeAndTypeLabels returns the label set an issue should carry: the repo
// label (in label scoping modes) plus the type label.
func (s *Syncer) scopeAndTypeLabels(ctx context.Context, t types.IssueType) ([]string, error) {
	team, err := s.ResolveTeam(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ResolveScope(ctx); err != nil {
		return nil, err
	}

	var ids []string
	if s.labelID != "" {
		ids = append(ids, s.labelID)
	}
	if t != "" && s.cfg.UseIssueTypes {
		typeID, err := s.client.EnsureTypeLabel(ctx, team.ID, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, typeID)
	}
	return ids, nil
}

// CreateRemote creates the issue on the Remote and reconciles the cache,
// replacing the pending placeholder row (when one exists) with the assigned
// identifier. Also the inline path for create --sync and import.
func (s *Syncer) CreateRemote(ctx context.Context, p *types.CreatePayload) (*types.Issue, error) {
	team, err := s.ResolveTeam(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := s.ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	in, err := s.buildInput(ctx, &p.Status, &p.Priority, &p.IssueType, nil)
	if err != nil {
		return nil, err
	}
	in.Title = &p.Title
	if p.Description != "" {
		in.Description = &p.Description
	}
	if p.Assignee != "" {
		user, err := s.client.UserByEmail(ctx, p.Assignee)
		if err != nil {
			return nil, err
		}
		in.AssigneeID = &user.ID
	}
	labelIDs, err := s.scopeAndTypeLabels(ctx, p.IssueType)
	if err != nil {
		return nil, err
	}
	in.LabelIDs = labelIDs
	if scope.ProjectID != "" {
		in.ProjectID = &scope.ProjectID
	}
	if p.Parent != "" {
		if parentRemote, err := s.remoteIDFor(ctx, p.Parent); err == nil {
			in.ParentID = &parentRemote
		}
	}

	wire, err := s.client.CreateIssue(ctx, team.ID, in)
	if err != nil {
		return nil, err
	}

	issue, _ := wire.ToIssue()
	if p.PendingID != "" {
		err := s.store.RenameIssue(p.PendingID, issue.ID, issue.RemoteID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
	}
	if err := s.store.UpsertIssue(issue); err != nil {
		return nil, err
	}

	// Deferred relations recorded at create time, now that the issue has a
	// real identifier. Best-effort.
	for _, dep := range p.Deps {
		src, dst := issue.ID, dep.OtherID
		if dep.Inverse {
			src, dst = dep.OtherID, issue.ID
		}
		rp := types.RelationPayload{IssueID: src, DependsOnID: dst, Type: dep.Type}
		if err := s.CreateRelationRemote(ctx, &rp); err != nil {
			s.log.Printf("deferred relation %s -> %s (%s): %v", src, dst, dep.Type, err)
		}
	}
	return issue, nil
}

// UpdateRemote applies a field update on the Remote and reconciles the cache.
func (s *Syncer) UpdateRemote(ctx context.Context, p *types.UpdatePayload) (*types.Issue, error) {
	remoteID, err := s.remoteIDFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	in, err := s.buildInput(ctx, p.Status, p.Priority, p.IssueType, p.Assignee)
	if err != nil {
		return nil, err
	}
	in.Title = p.Title
	in.Description = p.Description

	wire, err := s.client.UpdateIssue(ctx, remoteID, in)
	if err != nil {
		return nil, err
	}
	issue, _ := wire.ToIssue()
	if err := s.store.UpsertIssue(issue); err != nil {
		return nil, err
	}

	if p.Status != nil {
		s.PropagateStatus(ctx, issue.ID, *p.Status)
	}
	return issue, nil
}

// CloseRemote closes the issue on the Remote, posts the optional closing
// comment, and reconciles the cache.
func (s *Syncer) CloseRemote(ctx context.Context, p *types.ClosePayload) (*types.Issue, error) {
	remoteID, err := s.remoteIDFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	closed := types.StatusClosed
	in, err := s.buildInput(ctx, &closed, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	wire, err := s.client.UpdateIssue(ctx, remoteID, in)
	if err != nil {
		return nil, err
	}
	issue, _ := wire.ToIssue()
	if issue.ClosedAt == nil {
		now := time.Now().UTC()
		issue.ClosedAt = &now
	}
	if err := s.store.UpsertIssue(issue); err != nil {
		return nil, err
	}

	if p.Comment != "" {
		if err := s.client.CreateComment(ctx, remoteID, p.Comment); err != nil {
			s.log.Printf("closing comment on %s: %v", p.ID, err)
		}
	}
	s.PropagateStatus(ctx, issue.ID, types.StatusClosed)
	return issue, nil
}

// DeleteRemote deletes the issue on the Remote. The cache row was removed
// before enqueue.
func (s *Syncer) DeleteRemote(ctx context.Context, p *types.DeletePayload) error {
	remoteID, err := s.remoteIDFor(ctx, p.ID)
	if errors.Is(err, types.ErrNotFound) {
		// Already gone remotely; nothing left to do.
		return nil
	}
	if err != nil {
		return err
	}
	return s.client.DeleteIssue(ctx, remoteID)
}

// CreateRelationRemote records the relation on the Remote. Parent-child edges
// go through the parent field rather than a relation object.
func (s *Syncer) CreateRelationRemote(ctx context.Context, p *types.RelationPayload) error {
	srcRemote, err := s.remoteIDFor(ctx, p.IssueID)
	if err != nil {
		return err
	}
	dstRemote, err := s.remoteIDFor(ctx, p.DependsOnID)
	if err != nil {
		return err
	}

	if p.Type == types.DepParentChild {
		return s.client.SetParent(ctx, srcRemote, dstRemote)
	}
	relationType, err := linear.RelationTypeFor(p.Type)
	if err != nil {
		return err
	}
	return s.client.CreateRelation(ctx, srcRemote, dstRemote, relationType)
}

// DeleteRelationRemote removes the relation on the Remote and both local
// orientations of the edge.
func (s *Syncer) DeleteRelationRemote(ctx context.Context, p *types.RelationPayload) error {
	if p.Type == types.DepParentChild {
		childRemote, err := s.remoteIDFor(ctx, p.IssueID)
		if err != nil {
			return err
		}
		if err := s.client.SetParent(ctx, childRemote, ""); err != nil {
			return err
		}
	} else {
		hydrated, err := s.client.FetchIssue(ctx, p.IssueID)
		if err != nil {
			return err
		}
		relationType, err := linear.RelationTypeFor(p.Type)
		if err != nil {
			return err
		}
		for _, rel := range hydrated.Relations {
			match := rel.Type == relationType &&
				((rel.Issue == p.IssueID && rel.Related == p.DependsOnID) ||
					(rel.Issue == p.DependsOnID && rel.Related == p.IssueID))
			if match {
				if err := s.client.DeleteRelation(ctx, rel.ID); err != nil {
					return err
				}
			}
		}
	}

	err := s.store.DeleteDep(p.IssueID, p.DependsOnID, p.Type)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	return err
}

// remoteIDFor resolves an identifier to the Remote's internal id, consulting
// the cache first.
func (s *Syncer) remoteIDFor(ctx context.Context, identifier string) (string, error) {
	if issue, err := s.store.GetIssue(identifier); err == nil && issue.RemoteID != "" {
		return issue.RemoteID, nil
	}
	hydrated, err := s.client.FetchIssue(ctx, identifier)
	if err != nil {
		return "", err
	}
	return hydrated.Issue.ID, nil
}

// PropagateStatus applies the parent-status rules after a child's status
// change. Best-effort: failures are logged, never returned.
func (s *Syncer) PropagateStatus(ctx context.Context, childID string, newStatus types.Status) {
	parent, err := s.store.Parent(childID)
	if err != nil || parent == nil {
		return
	}

	switch {
	case newStatus == types.StatusInProgress && parent.Status == types.StatusOpen:
		s.enqueueParentUpdate(parent.ID, types.StatusInProgress)
	case newStatus == types.StatusClosed && parent.Status == types.StatusInProgress:
		siblings, err := s.store.Children(parent.ID)
		if err != nil {
			return
		}
		for _, sib := range siblings {
			if sib.ID != childID && sib.Status == types.StatusInProgress {
				return
			}
		}
		s.enqueueParentUpdate(parent.ID, types.StatusOpen)
	}
}

func (s *Syncer) enqueueParentUpdate(parentID string, status types.Status) {
	issue, err := s.store.GetIssue(parentID)
	if err != nil {
		return
	}
	issue.Status = status
	issue.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertIssue(issue); err != nil {
		s.log.Printf("propagating status to %s: %v", parentID, err)
		return
	}
	payload := types.UpdatePayload{ID: parentID, Status: &status}
	if _, err := s.store.Enqueue(types.OpUpdate, payload); err != nil {
		s.log.Printf("enqueueing propagation for %s: %v", parentID, err)
	}
}

// HydrateIssue fetches one issue with its relations in both directions and
// reconciles the cached row and its edges.
func (s *Syncer) HydrateIssue(ctx context.Context, identifier string) (*types.Issue, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no remote configured", types.ErrOffline)
	}
	hydrated, err := s.client.FetchIssue(ctx, identifier)
	if err != nil {
		return nil, err
	}

	issue, parent := hydrated.Issue.ToIssue()
	if err := s.store.UpsertIssue(issue); err != nil {
		return nil, err
	}
	if parent != "" {
		edge := &types.Dependency{IssueID: issue.ID, DependsOnID: parent, Type: types.DepParentChild}
		if err := s.store.UpsertDep(edge); err != nil {
			return nil, err
		}
	}
	for _, rel := range hydrated.Relations {
		depType := types.DepRelated
		if rel.Type == "blocks" {
			depType = types.DepBlocks
		}
		edge := &types.Dependency{IssueID: rel.Issue, DependsOnID: rel.Related, Type: depType}
		if err := edge.Validate(); err != nil {
			continue
		}
		if err := s.store.UpsertDep(edge); err != nil {
			s.log.Printf("hydrating edge %s -> %s: %v", rel.Issue, rel.Related, err)
		}
	}

	return s.store.GetIssue(issue.ID)
}

// HydrateRelations hydrates several issues' relations with bounded
// parallelism. Per-issue failures are logged and skipped.
func (s *Syncer) HydrateRelations(ctx context.Context, identifiers []string) {
	if s.client == nil || len(identifiers) == 0 {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for _, id := range identifiers {
		id := id
		g.Go(func() error {
			if _, err := s.HydrateIssue(ctx, id); err != nil {
				s.log.Printf("hydrating %s: %v", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
