package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/foundrymcp/foundry/internal/backend"
)

const (
	// DefaultEndpoint is the Linear GraphQL API endpoint.
	DefaultEndpoint = "https://api.linear.app/graphql"

	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 4

	retryInitialInterval = 500 * time.Millisecond
	retryMaxElapsed      = 30 * time.Second

	// pageSize is Linear's maximum page size.
	pageSize = 100
)

// Client talks to the Linear GraphQL API. All methods retry transient
// failures (transport errors, 5xx, 429) and classify everything else as
// terminal upstream errors.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// Option adjusts a Client.
type Option func(*Client)

// WithEndpoint points the client at a different GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries bounds the attempts per request.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient builds a Linear client. The API key goes into the Authorization
// header as-is; Linear personal keys are not Bearer tokens.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- GraphQL envelope ---

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// --- Entities ---

// Project is a Linear project.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// Document is a Linear project document.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// WorkflowState is a team workflow state. Type is one of backlog,
// unstarted, started, completed, canceled.
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Label is a team label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabelConnection wraps the nodes array of issue labels.
type LabelConnection struct {
	Nodes []Label `json:"nodes"`
}

// Issue is the slice of a Linear issue foundry works with.
type Issue struct {
	ID          string          `json:"id"`
	Identifier  string          `json:"identifier"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	State       *WorkflowState  `json:"state"`
	Labels      LabelConnection `json:"labels"`
}

// Closed reports whether the issue sits in a completed or canceled state.
func (i Issue) Closed() bool {
	return i.State != nil && (i.State.Type == "completed" || i.State.Type == "canceled")
}

// HasLabel reports whether the issue carries the named label.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels.Nodes {
		if l.Name == name {
			return true
		}
	}
	return false
}

// issueFields is the selection set shared by every issue query.
const issueFields = `
	id
	identifier
	title
	description
	state { id name type }
	labels { nodes { id name } }
`

// --- Transport ---

func newRequestBackoff() backoff.BackOff {
	// BackOff values are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// execute runs one GraphQL request and unmarshals the data field into out.
func (c *Client) execute(ctx context.Context, op, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return backend.Internalf(op, "marshal graphql request: %v", err)
	}

	var data json.RawMessage
	attempt := 0
	operation := func() error {
		attempt++
		err := c.roundTrip(ctx, op, payload, &data)
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		if attempt >= c.maxRetries {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(newRequestBackoff(), ctx)); err != nil {
		return err
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return backend.Upstreamf(op, "decode response: %v", err)
		}
	}
	return nil
}

// roundTrip performs a single HTTP exchange. Errors wrapped in
// backoff.Permanent stop the retry loop; everything else retries.
func (c *Client) roundTrip(ctx context.Context, op string, payload []byte, data *json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(backend.Internalf(op, "build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backend.Unavailablef(op, "linear unreachable: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return backend.Unavailablef(op, "read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Honour Retry-After before handing control back to the backoff.
		if wait := retryAfter(resp.Header); wait > 0 {
			select {
			case <-ctx.Done():
				return backoff.Permanent(backend.Unavailablef(op, "rate limited, context done: %v", ctx.Err()))
			case <-time.After(wait):
			}
		}
		return backend.Upstreamf(op, "linear rate limited (429)")
	case resp.StatusCode >= 500:
		return backend.Upstreamf(op, "linear returned %d: %s", resp.StatusCode, snippet(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return backoff.Permanent(backend.Upstreamf(op, "linear returned %d: %s", resp.StatusCode, snippet(body)))
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return backoff.Permanent(backend.Upstreamf(op, "malformed graphql response: %v", err))
	}
	if len(gql.Errors) > 0 {
		return backoff.Permanent(backend.Upstreamf(op, "graphql: %s", gql.Errors[0].Message))
	}
	*data = gql.Data
	return nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// snippet trims a response body for inclusion in an error message.
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// --- Viewer ---

// ViewerID returns the authenticated user's ID. Used as a credential check.
func (c *Client) ViewerID(ctx context.Context) (string, error) {
	var resp struct {
		Viewer struct {
			ID string `json:"id"`
		} `json:"viewer"`
	}
	if err := c.execute(ctx, "viewer", `query { viewer { id } }`, nil, &resp); err != nil {
		return "", err
	}
	return resp.Viewer.ID, nil
}

// --- Projects ---

// FindProjectByName looks a project up by exact name. Missing projects
// report a not_found error.
func (c *Client) FindProjectByName(ctx context.Context, name string) (*Project, error) {
	const query = `
		query FindProject($name: String!) {
			projects(filter: { name: { eq: $name } }, first: 2) {
				nodes { id name createdAt }
			}
		}
	`
	var resp struct {
		Projects struct {
			Nodes []Project `json:"nodes"`
		} `json:"projects"`
	}
	err := c.execute(ctx, "find_project", query, map[string]any{"name": name}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Projects.Nodes) == 0 {
		return nil, backend.NotFoundf("find_project", "no linear project named %q", name)
	}
	return &resp.Projects.Nodes[0], nil
}

// CreateProject creates a project owned by the given team.
func (c *Client) CreateProject(ctx context.Context, teamID, name string) (*Project, error) {
	const query = `
		mutation CreateProject($input: ProjectCreateInput!) {
			projectCreate(input: $input) {
				success
				project { id name createdAt }
			}
		}
	`
	var resp struct {
		ProjectCreate struct {
			Success bool    `json:"success"`
			Project Project `json:"project"`
		} `json:"projectCreate"`
	}
	variables := map[string]any{
		"input": map[string]any{"name": name, "teamIds": []string{teamID}},
	}
	if err := c.execute(ctx, "create_project", query, variables, &resp); err != nil {
		return nil, err
	}
	if !resp.ProjectCreate.Success {
		return nil, backend.Upstreamf("create_project", "linear rejected project %q", name)
	}
	return &resp.ProjectCreate.Project, nil
}

// DeleteProject moves a project to the trash.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	const query = `
		mutation DeleteProject($id: String!) {
			projectDelete(id: $id) { success }
		}
	`
	var resp struct {
		ProjectDelete struct {
			Success bool `json:"success"`
		} `json:"projectDelete"`
	}
	if err := c.execute(ctx, "delete_project", query, map[string]any{"id": projectID}, &resp); err != nil {
		return err
	}
	if !resp.ProjectDelete.Success {
		return backend.Upstreamf("delete_project", "linear refused to delete project %s", projectID)
	}
	return nil
}

// ListProjects returns every project visible to the API key.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	const query = `
		query Projects($first: Int!, $after: String) {
			projects(first: $first, after: $after) {
				nodes { id name createdAt }
				pageInfo { hasNextPage endCursor }
			}
		}
	`
	var all []Project
	cursor := ""
	for {
		variables := map[string]any{"first": pageSize}
		if cursor != "" {
			variables["after"] = cursor
		}
		var resp struct {
			Projects struct {
				Nodes    []Project `json:"nodes"`
				PageInfo pageInfo  `json:"pageInfo"`
			} `json:"projects"`
		}
		if err := c.execute(ctx, "list_projects", query, variables, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Projects.Nodes...)
		if !resp.Projects.PageInfo.HasNextPage {
			return all, nil
		}
		cursor = resp.Projects.PageInfo.EndCursor
	}
}

// --- Documents ---

// ProjectDocuments returns every document attached to a project.
func (c *Client) ProjectDocuments(ctx context.Context, projectID string) ([]Document, error) {
	const query = `
		query ProjectDocuments($projectId: ID!, $first: Int!, $after: String) {
			documents(filter: { project: { id: { eq: $projectId } } }, first: $first, after: $after) {
				nodes { id title content }
				pageInfo { hasNextPage endCursor }
			}
		}
	`
	var all []Document
	cursor := ""
	for {
		variables := map[string]any{"projectId": projectID, "first": pageSize}
		if cursor != "" {
			variables["after"] = cursor
		}
		var resp struct {
			Documents struct {
				Nodes    []Document `json:"nodes"`
				PageInfo pageInfo   `json:"pageInfo"`
			} `json:"documents"`
		}
		if err := c.execute(ctx, "project_documents", query, variables, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Documents.Nodes...)
		if !resp.Documents.PageInfo.HasNextPage {
			return all, nil
		}
		cursor = resp.Documents.PageInfo.EndCursor
	}
}

// FindDocumentByTitle looks a project document up by exact title. Missing
// documents report a not_found error.
func (c *Client) FindDocumentByTitle(ctx context.Context, projectID, title string) (*Document, error) {
	const query = `
		query FindDocument($projectId: ID!, $title: String!) {
			documents(filter: { project: { id: { eq: $projectId } }, title: { eq: $title } }, first: 2) {
				nodes { id title content }
			}
		}
	`
	var resp struct {
		Documents struct {
			Nodes []Document `json:"nodes"`
		} `json:"documents"`
	}
	variables := map[string]any{"projectId": projectID, "title": title}
	if err := c.execute(ctx, "find_document", query, variables, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents.Nodes) == 0 {
		return nil, backend.NotFoundf("find_document", "no document titled %q", title)
	}
	return &resp.Documents.Nodes[0], nil
}

// CreateDocument creates a project document.
func (c *Client) CreateDocument(ctx context.Context, projectID, title, content string) (*Document, error) {
	const query = `
		mutation CreateDocument($input: DocumentCreateInput!) {
			documentCreate(input: $input) {
				success
				document { id title content }
			}
		}
	`
	var resp struct {
		DocumentCreate struct {
			Success  bool     `json:"success"`
			Document Document `json:"document"`
		} `json:"documentCreate"`
	}
	variables := map[string]any{
		"input": map[string]any{"projectId": projectID, "title": title, "content": content},
	}
	if err := c.execute(ctx, "create_document", query, variables, &resp); err != nil {
		return nil, err
	}
	if !resp.DocumentCreate.Success {
		return nil, backend.Upstreamf("create_document", "linear rejected document %q", title)
	}
	return &resp.DocumentCreate.Document, nil
}

// UpdateDocument replaces a document's content.
func (c *Client) UpdateDocument(ctx context.Context, documentID, content string) error {
	const query = `
		mutation UpdateDocument($id: String!, $input: DocumentUpdateInput!) {
			documentUpdate(id: $id, input: $input) { success }
		}
	`
	var resp struct {
		DocumentUpdate struct {
			Success bool `json:"success"`
		} `json:"documentUpdate"`
	}
	variables := map[string]any{"id": documentID, "input": map[string]any{"content": content}}
	if err := c.execute(ctx, "update_document", query, variables, &resp); err != nil {
		return err
	}
	if !resp.DocumentUpdate.Success {
		return backend.Upstreamf("update_document", "linear refused to update document %s", documentID)
	}
	return nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	const query = `
		mutation DeleteDocument($id: String!) {
			documentDelete(id: $id) { success }
		}
	`
	var resp struct {
		DocumentDelete struct {
			Success bool `json:"success"`
		} `json:"documentDelete"`
	}
	if err := c.execute(ctx, "delete_document", query, map[string]any{"id": documentID}, &resp); err != nil {
		return err
	}
	if !resp.DocumentDelete.Success {
		return backend.Upstreamf("delete_document", "linear refused to delete document %s", documentID)
	}
	return nil
}

// --- Issues ---

// FindIssueByTitle looks up an issue in a project by exact title. Missing
// issues report a not_found error.
func (c *Client) FindIssueByTitle(ctx context.Context, projectID, title string) (*Issue, error) {
	query := fmt.Sprintf(`
		query FindIssue($projectId: ID!, $title: String!) {
			issues(filter: { project: { id: { eq: $projectId } }, title: { eq: $title } }, first: 2) {
				nodes {%s}
			}
		}
	`, issueFields)
	var resp struct {
		Issues struct {
			Nodes []Issue `json:"nodes"`
		} `json:"issues"`
	}
	variables := map[string]any{"projectId": projectID, "title": title}
	if err := c.execute(ctx, "find_issue", query, variables, &resp); err != nil {
		return nil, err
	}
	if len(resp.Issues.Nodes) == 0 {
		return nil, backend.NotFoundf("find_issue", "no issue titled %q", title)
	}
	return &resp.Issues.Nodes[0], nil
}

// IssuesUnderParent returns every sub-issue of a parent issue.
func (c *Client) IssuesUnderParent(ctx context.Context, parentID string) ([]Issue, error) {
	query := fmt.Sprintf(`
		query SubIssues($parentId: ID!, $first: Int!, $after: String) {
			issues(filter: { parent: { id: { eq: $parentId } } }, first: $first, after: $after) {
				nodes {%s}
				pageInfo { hasNextPage endCursor }
			}
		}
	`, issueFields)
	var all []Issue
	cursor := ""
	for {
		variables := map[string]any{"parentId": parentID, "first": pageSize}
		if cursor != "" {
			variables["after"] = cursor
		}
		var resp struct {
			Issues struct {
				Nodes    []Issue  `json:"nodes"`
				PageInfo pageInfo `json:"pageInfo"`
			} `json:"issues"`
		}
		if err := c.execute(ctx, "sub_issues", query, variables, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Issues.Nodes...)
		if !resp.Issues.PageInfo.HasNextPage {
			return all, nil
		}
		cursor = resp.Issues.PageInfo.EndCursor
	}
}

// IssueCreateInput carries the fields foundry sets when creating issues.
// Zero-valued optional fields are omitted from the mutation.
type IssueCreateInput struct {
	TeamID      string
	ProjectID   string
	Title       string
	Description string
	ParentID    string
	StateID     string
	LabelIDs    []string
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, in IssueCreateInput) (*Issue, error) {
	query := fmt.Sprintf(`
		mutation CreateIssue($input: IssueCreateInput!) {
			issueCreate(input: $input) {
				success
				issue {%s}
			}
		}
	`, issueFields)
	input := map[string]any{
		"teamId":      in.TeamID,
		"title":       in.Title,
		"description": in.Description,
	}
	if in.ProjectID != "" {
		input["projectId"] = in.ProjectID
	}
	if in.ParentID != "" {
		input["parentId"] = in.ParentID
	}
	if in.StateID != "" {
		input["stateId"] = in.StateID
	}
	if len(in.LabelIDs) > 0 {
		input["labelIds"] = in.LabelIDs
	}
	var resp struct {
		IssueCreate struct {
			Success bool  `json:"success"`
			Issue   Issue `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.execute(ctx, "create_issue", query, map[string]any{"input": input}, &resp); err != nil {
		return nil, err
	}
	if !resp.IssueCreate.Success {
		return nil, backend.Upstreamf("create_issue", "linear rejected issue %q", in.Title)
	}
	return &resp.IssueCreate.Issue, nil
}

// IssueUpdateInput carries the mutable issue fields. Nil means leave the
// field unchanged.
type IssueUpdateInput struct {
	StateID     *string
	LabelIDs    *[]string
	Description *string
}

// UpdateIssue applies the non-nil fields of in to an issue.
func (c *Client) UpdateIssue(ctx context.Context, issueID string, in IssueUpdateInput) error {
	const query = `
		mutation UpdateIssue($id: String!, $input: IssueUpdateInput!) {
			issueUpdate(id: $id, input: $input) { success }
		}
	`
	input := map[string]any{}
	if in.StateID != nil {
		input["stateId"] = *in.StateID
	}
	if in.LabelIDs != nil {
		input["labelIds"] = *in.LabelIDs
	}
	if in.Description != nil {
		input["description"] = *in.Description
	}
	var resp struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	variables := map[string]any{"id": issueID, "input": input}
	if err := c.execute(ctx, "update_issue", query, variables, &resp); err != nil {
		return err
	}
	if !resp.IssueUpdate.Success {
		return backend.Upstreamf("update_issue", "linear refused to update issue %s", issueID)
	}
	return nil
}

// --- Teams ---

// TeamStates returns the workflow states of a team.
func (c *Client) TeamStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	const query = `
		query TeamStates($teamId: String!) {
			team(id: $teamId) {
				id
				states { nodes { id name type } }
			}
		}
	`
	var resp struct {
		Team struct {
			ID     string `json:"id"`
			States struct {
				Nodes []WorkflowState `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "team_states", query, map[string]any{"teamId": teamID}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Team.States.Nodes) == 0 {
		return nil, backend.Upstreamf("team_states", "team %s has no workflow states", teamID)
	}
	return resp.Team.States.Nodes, nil
}

// EnsureLabel finds a team label by name, creating it when missing, and
// returns its ID.
func (c *Client) EnsureLabel(ctx context.Context, teamID, name string) (string, error) {
	const findQuery = `
		query TeamLabels($teamId: String!, $name: String!) {
			team(id: $teamId) {
				labels(filter: { name: { eq: $name } }) {
					nodes { id name }
				}
			}
		}
	`
	var found struct {
		Team struct {
			Labels struct {
				Nodes []Label `json:"nodes"`
			} `json:"labels"`
		} `json:"team"`
	}
	variables := map[string]any{"teamId": teamID, "name": name}
	if err := c.execute(ctx, "ensure_label", findQuery, variables, &found); err != nil {
		return "", err
	}
	if len(found.Team.Labels.Nodes) > 0 {
		return found.Team.Labels.Nodes[0].ID, nil
	}

	const createQuery = `
		mutation CreateLabel($input: IssueLabelCreateInput!) {
			issueLabelCreate(input: $input) {
				success
				issueLabel { id name }
			}
		}
	`
	var created struct {
		IssueLabelCreate struct {
			Success    bool  `json:"success"`
			IssueLabel Label `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	input := map[string]any{"input": map[string]any{"teamId": teamID, "name": name}}
	if err := c.execute(ctx, "ensure_label", createQuery, input, &created); err != nil {
		return "", err
	}
	if !created.IssueLabelCreate.Success {
		return "", backend.Upstreamf("ensure_label", "linear rejected label %q", name)
	}
	return created.IssueLabelCreate.IssueLabel.ID, nil
}
