package linear

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/lb/internal/types"
)

// TypeLabelGroup is the name of the label group holding issue-type labels.
// Linear models groups as labels with children.
const TypeLabelGroup = "type"

// PageSize is the cursor page size for bulk issue pulls.
const PageSize = 100

// User is the wire shape of a Linear user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Team is the wire shape of a Linear team.
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// State is one workflow state of a team.
type State struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Label is the wire shape of a Linear label.
type Label struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"-"`
}

// Relation is one issue-to-issue relation edge, as seen from a given issue.
type Relation struct {
	ID      string
	Type    string
	Issue   string
	Related string
}

// Viewer returns the authenticated user.
func (c *Client) Viewer(ctx context.Context) (*User, error) {
	var resp struct {
		Viewer User `json:"viewer"`
	}
	err := c.do(ctx, `query { viewer { id name email } }`, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Viewer, nil
}

// Teams lists every team in the workspace.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var resp struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	err := c.do(ctx, `query { teams { nodes { id key name } } }`, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Teams.Nodes, nil
}

// TeamByKey resolves a team by its short code (the "ENG" in ENG-42).
func (c *Client) TeamByKey(ctx context.Context, key string) (*Team, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if teams[i].Key == key {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("%w: team %q", types.ErrNotFound, key)
}

// States lists the workflow states of a team.
func (c *Client) States(ctx context.Context, teamID string) ([]State, error) {
	var resp struct {
		Team struct {
			States struct {
				Nodes []State `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	err := c.do(ctx, `query($id: String!) {
		team(id: $id) { states { nodes { id name type } } }
	}`, map[string]interface{}{"id": teamID}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Team.States.Nodes, nil
}

// StateIDFor picks some workflow state whose type matches the canonical
// status.
func (c *Client) StateIDFor(ctx context.Context, teamID string, status types.Status) (string, error) {
	states, err := c.States(ctx, teamID)
	if err != nil {
		return "", err
	}
	for _, want := range StateTypesFor(status) {
		for _, st := range states {
			if st.Type == want {
				return st.ID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no workflow state for status %s", types.ErrNotFound, status)
}

// Labels lists the labels of a team.
func (c *Client) Labels(ctx context.Context, teamID string) ([]Label, error) {
	var resp struct {
		Team struct {
			Labels struct {
				Nodes []Label `json:"nodes"`
			} `json:"labels"`
		} `json:"team"`
	}
	err := c.do(ctx, `query($id: String!) {
		team(id: $id) { labels { nodes { id name } } }
	}`, map[string]interface{}{"id": teamID}, &resp)
	if err != nil {
		return nil, err
	}
	for i := range resp.Team.Labels.Nodes {
		resp.Team.Labels.Nodes[i].TeamID = teamID
	}
	return resp.Team.Labels.Nodes, nil
}

// EnsureLabel returns the id of the named team label, creating it when
// missing. parentID nests the new label inside a label group.
func (c *Client) EnsureLabel(ctx context.Context, teamID, name, parentID string) (string, error) {
	labels, err := c.Labels(ctx, teamID)
	if err != nil {
		return "", err
	}
	for _, label := range labels {
		if label.Name == name {
			return label.ID, nil
		}
	}

	input := map[string]interface{}{"teamId": teamID, "name": name}
	if parentID != "" {
		input["parentId"] = parentID
	}
	var resp struct {
		IssueLabelCreate struct {
			IssueLabel Label `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	err = c.do(ctx, `mutation($input: IssueLabelCreateInput!) {
		issueLabelCreate(input: $input) { issueLabel { id name } }
	}`, map[string]interface{}{"input": input}, &resp)
	if err != nil {
		return "", err
	}
	return resp.IssueLabelCreate.IssueLabel.ID, nil
}

// EnsureTypeLabel returns the label id for an issue type, creating the "type"
// label group and the member label as needed.
func (c *Client) EnsureTypeLabel(ctx context.Context, teamID string, t types.IssueType) (string, error) {
	groupID, err := c.EnsureLabel(ctx, teamID, TypeLabelGroup, "")
	if err != nil {
		return "", err
	}
	return c.EnsureLabel(ctx, teamID, string(t), groupID)
}

// EnsureProject returns the id of the named team project, creating it when
// missing.
func (c *Client) EnsureProject(ctx context.Context, teamID, name string) (string, error) {
	var listResp struct {
		Team struct {
			Projects struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"projects"`
		} `json:"team"`
	}
	err := c.do(ctx, `query($id: String!) {
		team(id: $id) { projects { nodes { id name } } }
	}`, map[string]interface{}{"id": teamID}, &listResp)
	if err != nil {
		return "", err
	}
	for _, p := range listResp.Team.Projects.Nodes {
		if p.Name == name {
			return p.ID, nil
		}
	}

	var createResp struct {
		ProjectCreate struct {
			Project struct {
				ID string `json:"id"`
			} `json:"project"`
		} `json:"projectCreate"`
	}
	err = c.do(ctx, `mutation($input: ProjectCreateInput!) {
		projectCreate(input: $input) { project { id } }
	}`, map[string]interface{}{"input": map[string]interface{}{
		"teamIds": []string{teamID},
		"name":    name,
	}}, &createResp)
	if err != nil {
		return "", err
	}
	return createResp.ProjectCreate.Project.ID, nil
}

// IssueInput carries the settable fields of a create or update mutation. Nil
// pointers are omitted from the payload.
type IssueInput struct {
	Title       *string
	Description *string
	Priority    *int
	StateID     *string
	AssigneeID  *string
	LabelIDs    []string
	ProjectID   *string
	ParentID    *string
}

func (in *IssueInput) toMap() map[string]interface{} {
	m := map[string]interface{}{}
	if in.Title != nil {
		m["title"] = *in.Title
	}
	if in.Description != nil {
		m["description"] = *in.Description
	}
	if in.Priority != nil {
		m["priority"] = *in.Priority
	}
	if in.StateID != nil {
		m["stateId"] = *in.StateID
	}
	if in.AssigneeID != nil {
		m["assigneeId"] = *in.AssigneeID
	}
	if in.LabelIDs != nil {
		m["labelIds"] = in.LabelIDs
	}
	if in.ProjectID != nil {
		m["projectId"] = *in.ProjectID
	}
	if in.ParentID != nil {
		m["parentId"] = *in.ParentID
	}
	return m
}

// CreateIssue creates an issue in the team and returns the created node. The
// client supplies the issue id, so a retried mutation after a lost response
// cannot duplicate the issue.
func (c *Client) CreateIssue(ctx context.Context, teamID string, in IssueInput) (*Issue, error) {
	input := in.toMap()
	input["teamId"] = teamID
	input["id"] = uuid.NewString()

	var resp struct {
		IssueCreate struct {
			Issue Issue `json:"issue"`
		} `json:"issueCreate"`
	}
	err := c.do(ctx, `mutation($input: IssueCreateInput!) {
		issueCreate(input: $input) { issue { `+issueFields+` } }
	}`, map[string]interface{}{"input": input}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueCreate.Issue, nil
}

// UpdateIssue applies the non-nil fields of in to the issue.
func (c *Client) UpdateIssue(ctx context.Context, remoteID string, in IssueInput) (*Issue, error) {
	var resp struct {
		IssueUpdate struct {
			Issue Issue `json:"issue"`
		} `json:"issueUpdate"`
	}
	err := c.do(ctx, `mutation($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { issue { `+issueFields+` } }
	}`, map[string]interface{}{"id": remoteID, "input": in.toMap()}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueUpdate.Issue, nil
}

// DeleteIssue moves the issue to the Remote's trash.
func (c *Client) DeleteIssue(ctx context.Context, remoteID string) error {
	return c.do(ctx, `mutation($id: String!) {
		issueDelete(id: $id) { success }
	}`, map[string]interface{}{"id": remoteID}, nil)
}

// SetParent points the issue at a new parent, or clears it when parentID is
// empty.
func (c *Client) SetParent(ctx context.Context, remoteID, parentID string) error {
	var parent interface{}
	if parentID != "" {
		parent = parentID
	}
	return c.do(ctx, `mutation($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success }
	}`, map[string]interface{}{
		"id":    remoteID,
		"input": map[string]interface{}{"parentId": parent},
	}, nil)
}

// RelationTypeFor maps a dependency type to Linear's relation vocabulary.
// Parent-child edges are not relations and must go through SetParent.
func RelationTypeFor(t types.DependencyType) (string, error) {
	switch t {
	case types.DepBlocks:
		return "blocks", nil
	case types.DepRelated, types.DepDiscoveredFrom:
		return "related", nil
	}
	return "", fmt.Errorf("%w: dependency type %s has no remote relation", types.ErrValidation, t)
}

// CreateRelation records a typed relation between two issues.
func (c *Client) CreateRelation(ctx context.Context, issueID, relatedID, relationType string) error {
	return c.do(ctx, `mutation($input: IssueRelationCreateInput!) {
		issueRelationCreate(input: $input) { success }
	}`, map[string]interface{}{"input": map[string]interface{}{
		"issueId":        issueID,
		"relatedIssueId": relatedID,
		"type":           relationType,
	}}, nil)
}

// DeleteRelation removes a relation by its id.
func (c *Client) DeleteRelation(ctx context.Context, relationID string) error {
	return c.do(ctx, `mutation($id: String!) {
		issueRelationDelete(id: $id) { success }
	}`, map[string]interface{}{"id": relationID}, nil)
}

// CreateComment adds a comment to an issue.
func (c *Client) CreateComment(ctx context.Context, remoteID, body string) error {
	return c.do(ctx, `mutation($input: CommentCreateInput!) {
		commentCreate(input: $input) { success }
	}`, map[string]interface{}{"input": map[string]interface{}{
		"issueId": remoteID,
		"body":    body,
	}}, nil)
}

// Scope is the repo filter applied to bulk issue queries. Either or both
// fields may be set depending on the configured scoping mode.
type Scope struct {
	LabelName string
	ProjectID string
}

func (s Scope) filter(since *time.Time) map[string]interface{} {
	filter := map[string]interface{}{}
	if s.LabelName != "" {
		filter["labels"] = map[string]interface{}{
			"name": map[string]interface{}{"eq": s.LabelName},
		}
	}
	if s.ProjectID != "" {
		filter["project"] = map[string]interface{}{
			"id": map[string]interface{}{"eq": s.ProjectID},
		}
	}
	if since != nil {
		filter["updatedAt"] = map[string]interface{}{"gt": since.UTC().Format(time.RFC3339)}
	}
	return filter
}

// FetchIssues pulls every repo-scoped issue by cursor pages. A non-nil since
// narrows the pull to issues updated after that instant.
func (c *Client) FetchIssues(ctx context.Context, scope Scope, since *time.Time) ([]Issue, error) {
	var all []Issue
	var cursor *string

	for {
		var resp struct {
			Issues struct {
				Nodes    []Issue `json:"nodes"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"issues"`
		}
		err := c.do(ctx, `query($filter: IssueFilter, $first: Int!, $after: String) {
			issues(filter: $filter, first: $first, after: $after) {
				nodes { `+issueFields+` }
				pageInfo { hasNextPage endCursor }
			}
		}`, map[string]interface{}{
			"filter": scope.filter(since),
			"first":  PageSize,
			"after":  cursor,
		}, &resp)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Issues.Nodes...)
		if !resp.Issues.PageInfo.HasNextPage {
			return all, nil
		}
		end := resp.Issues.PageInfo.EndCursor
		cursor = &end
	}
}

// IssueWithRelations is a single issue plus its outgoing and incoming
// relation edges.
type IssueWithRelations struct {
	Issue     Issue
	Relations []Relation
}

// FetchIssue pulls one issue by public identifier together with its relations
// in both directions.
func (c *Client) FetchIssue(ctx context.Context, identifier string) (*IssueWithRelations, error) {
	var resp struct {
		Issue *struct {
			Issue
			Relations struct {
				Nodes []struct {
					ID           string `json:"id"`
					Type         string `json:"type"`
					RelatedIssue struct {
						Identifier string `json:"identifier"`
					} `json:"relatedIssue"`
				} `json:"nodes"`
			} `json:"relations"`
			InverseRelations struct {
				Nodes []struct {
					ID    string `json:"id"`
					Type  string `json:"type"`
					Issue struct {
						Identifier string `json:"identifier"`
					} `json:"issue"`
				} `json:"nodes"`
			} `json:"inverseRelations"`
		} `json:"issue"`
	}
	err := c.do(ctx, `query($id: String!) {
		issue(id: $id) {
			`+issueFields+`
			relations { nodes { id type relatedIssue { identifier } } }
			inverseRelations { nodes { id type issue { identifier } } }
		}
	}`, map[string]interface{}{"id": identifier}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Issue == nil {
		return nil, fmt.Errorf("%w: issue %s", types.ErrNotFound, identifier)
	}

	result := &IssueWithRelations{Issue: resp.Issue.Issue}
	for _, r := range resp.Issue.Relations.Nodes {
		result.Relations = append(result.Relations, Relation{
			ID:      r.ID,
			Type:    r.Type,
			Issue:   resp.Issue.Identifier,
			Related: r.RelatedIssue.Identifier,
		})
	}
	for _, r := range resp.Issue.InverseRelations.Nodes {
		result.Relations = append(result.Relations, Relation{
			ID:      r.ID,
			Type:    r.Type,
			Issue:   r.Issue.Identifier,
			Related: resp.Issue.Identifier,
		})
	}
	return result, nil
}

// UserByEmail resolves a workspace user by email, for --assign.
func (c *Client) UserByEmail(ctx context.Context, email string) (*User, error) {
	var resp struct {
		Users struct {
			Nodes []User `json:"nodes"`
		} `json:"users"`
	}
	err := c.do(ctx, `query($filter: UserFilter) {
		users(filter: $filter) { nodes { id name email } }
	}`, map[string]interface{}{"filter": map[string]interface{}{
		"email": map[string]interface{}{"eq": email},
	}}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Users.Nodes) == 0 {
		return nil, fmt.Errorf("%w: user %s", types.ErrNotFound, email)
	}
	return &resp.Users.Nodes[0], nil
}
