// Package linear implements the remote backend: projects and specs stored
// in Linear as projects, documents, and issues, tied together by marker
// comments. The GraphQL client, the marker grammar, and the backend itself
// live here.
package linear

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/reconcile"
	"github.com/foundrymcp/foundry/internal/tasklist"
)

// LabelName is the team label every foundry-managed issue carries.
const LabelName = "foundry"

// Context documents are title-addressed; these titles are the contract.
const (
	titleVision    = "Vision"
	titleTechStack = "Tech Stack"
	titleSummary   = "Summary"
)

// listProjectsConcurrency bounds the per-project document fetches behind
// ListProjects.
const listProjectsConcurrency = 4

var timeNow = time.Now

// Backend stores foundry data in Linear: one Linear project per foundry
// project, one document per spec file, one issue per task. Implements
// backend.Backend and backend.TaskSyncer.
type Backend struct {
	client *Client
	teamID string

	mu      sync.Mutex
	labelID string
	states  []WorkflowState
}

// New builds a Linear-backed Backend for one team.
func New(client *Client, teamID string) *Backend {
	return &Backend{client: client, teamID: teamID}
}

// Name identifies the backend in envelopes and the journal.
func (b *Backend) Name() string { return "linear" }

// documentTitle names a spec document, e.g. "20260825_143000_auth — spec".
func documentTitle(specID string, ft backend.FileType) string {
	return fmt.Sprintf("%s — %s", specID, ft)
}

// --- Projects ---

// CreateProject creates the Linear project and its three context documents.
func (b *Backend) CreateProject(ctx context.Context, name string, seed backend.ProjectSeed) (*backend.Project, error) {
	if err := backend.ValidateProjectName(name); err != nil {
		return nil, err
	}
	_, err := b.client.FindProjectByName(ctx, name)
	if err == nil {
		return nil, backend.Conflictf("create_project", "project %q already exists", name).WithPath(name)
	}
	if !backend.IsKind(err, backend.KindNotFound) {
		return nil, err
	}

	project, err := b.client.CreateProject(ctx, b.teamID, name)
	if err != nil {
		return nil, err
	}
	for _, d := range []struct{ title, content string }{
		{titleVision, seed.Vision},
		{titleTechStack, seed.TechStack},
		{titleSummary, seed.Summary},
	} {
		if _, err := b.client.CreateDocument(ctx, project.ID, d.title, d.content); err != nil {
			return nil, err
		}
	}

	return &backend.Project{
		Name:      name,
		Vision:    seed.Vision,
		TechStack: seed.TechStack,
		Summary:   seed.Summary,
		Specs:     []string{},
	}, nil
}

// LoadProject fetches the three context documents and the spec listing
// concurrently.
func (b *Backend) LoadProject(ctx context.Context, name string) (*backend.Project, error) {
	project, err := b.requireProject(ctx, name)
	if err != nil {
		return nil, err
	}

	out := &backend.Project{Name: name, Specs: []string{}}
	g, gctx := errgroup.WithContext(ctx)
	fetch := func(title string, dst *string) {
		g.Go(func() error {
			doc, err := b.client.FindDocumentByTitle(gctx, project.ID, title)
			if backend.IsKind(err, backend.KindNotFound) {
				// Tolerate hand-pruned projects; the document reads empty.
				return nil
			}
			if err != nil {
				return err
			}
			*dst = doc.Content
			return nil
		})
	}
	fetch(titleVision, &out.Vision)
	fetch(titleTechStack, &out.TechStack)
	fetch(titleSummary, &out.Summary)
	g.Go(func() error {
		infos, err := b.listSpecs(gctx, project.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(infos))
		for _, info := range infos {
			ids = append(ids, info.ID)
		}
		out.Specs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProjects returns the Linear projects that look like foundry projects:
// those carrying all three context documents. Document fetches run with
// bounded concurrency.
func (b *Backend) ListProjects(ctx context.Context) ([]backend.ProjectInfo, error) {
	projects, err := b.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	type slot struct {
		info backend.ProjectInfo
		ok   bool
	}
	slots := make([]slot, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listProjectsConcurrency)
	for i, p := range projects {
		g.Go(func() error {
			docs, err := b.client.ProjectDocuments(gctx, p.ID)
			if err != nil {
				return err
			}
			titles := map[string]bool{}
			for _, d := range docs {
				titles[d.Title] = true
			}
			if !titles[titleVision] || !titles[titleTechStack] || !titles[titleSummary] {
				return nil
			}
			slots[i] = slot{
				info: backend.ProjectInfo{
					Name:      p.Name,
					CreatedAt: parseTime(p.CreatedAt),
					SpecCount: len(specInfosFromDocs(docs)),
				},
				ok: true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	infos := []backend.ProjectInfo{}
	for _, s := range slots {
		if s.ok {
			infos = append(infos, s.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteProject trashes the Linear project. The confirm-token check lives
// in the operation layer.
func (b *Backend) DeleteProject(ctx context.Context, name string) error {
	p, err := b.requireProject(ctx, name)
	if err != nil {
		return err
	}
	return b.client.DeleteProject(ctx, p.ID)
}

// requireProject resolves a project name to its Linear project, decorating
// not_found with nearest-name candidates.
func (b *Backend) requireProject(ctx context.Context, name string) (*Project, error) {
	if err := backend.ValidateProjectName(name); err != nil {
		return nil, err
	}
	p, err := b.client.FindProjectByName(ctx, name)
	if backend.IsKind(err, backend.KindNotFound) {
		e := backend.NotFoundf("load_project", "project %q does not exist", name).WithPath(name)
		if all, lerr := b.client.ListProjects(ctx); lerr == nil {
			names := make([]string, 0, len(all))
			for _, lp := range all {
				names = append(names, lp.Name)
			}
			e.Candidates = backend.NearestNames(name, names)
		}
		return nil, e
	}
	return p, err
}

// --- Specs ---

// CreateSpec mints the spec ID, creates the three marked documents, then
// lets the reconciler build the parent issue and any seeded tasks.
func (b *Backend) CreateSpec(ctx context.Context, project, feature string, seed backend.SpecSeed) (*backend.Spec, error) {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := backend.ValidateFeature(feature); err != nil {
		return nil, err
	}

	existing, err := b.listSpecs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	for _, info := range existing {
		taken[info.ID] = true
	}
	base := backend.NewSpecID(timeNow().UTC(), feature)
	specID := base
	for n := 2; taken[specID]; n++ {
		specID = fmt.Sprintf("%s_%d", base, n)
	}

	m := SpecMarker(specID)
	content := backend.SpecContent{Spec: seed.Spec, Tasks: seed.Tasks, Notes: seed.Notes}
	for _, ft := range backend.FileTypes() {
		title := documentTitle(specID, ft)
		if _, err := b.client.CreateDocument(ctx, p.ID, title, WithMarker(m, content.Get(ft))); err != nil {
			return nil, err
		}
	}

	if _, err := b.reconcileTasks(ctx, p.ID, specID, seed.Tasks); err != nil {
		return nil, err
	}

	return &backend.Spec{ID: specID, Project: project, Content: content}, nil
}

// LoadSpec fetches the three spec documents concurrently.
func (b *Backend) LoadSpec(ctx context.Context, project, specID string) (*backend.Spec, error) {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return nil, err
	}

	fts := backend.FileTypes()
	var contents [3]string
	g, gctx := errgroup.WithContext(ctx)
	for i, ft := range fts {
		g.Go(func() error {
			c, err := b.readSpecDocument(gctx, p.ID, specID, ft)
			if err != nil {
				return err
			}
			contents[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	spec := &backend.Spec{ID: specID, Project: project}
	for i, ft := range fts {
		spec.Content.Set(ft, contents[i])
	}
	return spec, nil
}

// ListSpecs enumerates the project's spec documents by marker, newest
// first. Unmarked documents are invisible.
func (b *Backend) ListSpecs(ctx context.Context, project string) ([]backend.SpecInfo, error) {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return b.listSpecs(ctx, p.ID)
}

func (b *Backend) listSpecs(ctx context.Context, projectID string) ([]backend.SpecInfo, error) {
	docs, err := b.client.ProjectDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return specInfosFromDocs(docs), nil
}

// specInfosFromDocs extracts spec infos from a project's documents, newest
// first. Only documents opening with a valid type=spec marker count.
func specInfosFromDocs(docs []Document) []backend.SpecInfo {
	seen := map[string]bool{}
	infos := []backend.SpecInfo{}
	for _, d := range docs {
		m, ok := ExtractMarker(d.Content)
		if !ok || m.Type != TypeSpec || !backend.LooksLikeSpecID(m.SpecID) || seen[m.SpecID] {
			continue
		}
		seen[m.SpecID] = true
		info := backend.SpecInfo{ID: m.SpecID, Feature: backend.FeatureOf(m.SpecID)}
		if t, ok := backend.SpecTime(m.SpecID); ok {
			info.CreatedAt = t
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID > infos[j].ID })
	return infos
}

// DeleteSpec deletes the three documents, cancels open sub-issues, and
// closes the parent issue.
func (b *Backend) DeleteSpec(ctx context.Context, project, specID string) error {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return err
	}

	deleted := 0
	for _, ft := range backend.FileTypes() {
		doc, err := b.client.FindDocumentByTitle(ctx, p.ID, documentTitle(specID, ft))
		if backend.IsKind(err, backend.KindNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := b.client.DeleteDocument(ctx, doc.ID); err != nil {
			return err
		}
		deleted++
	}

	parent, err := b.client.FindIssueByTitle(ctx, p.ID, specID)
	switch {
	case backend.IsKind(err, backend.KindNotFound):
		if deleted == 0 {
			return b.specNotFound(ctx, p.ID, specID)
		}
		return nil
	case err != nil:
		return err
	}

	states, err := b.teamStates(ctx)
	if err != nil {
		return err
	}
	cancelID, ok := stateOfType(states, "canceled", "completed")
	if !ok {
		return backend.Upstreamf("delete_spec", "team %s has no canceled or completed state", b.teamID)
	}

	subs, err := b.client.IssuesUnderParent(ctx, parent.ID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.Closed() {
			continue
		}
		if err := b.client.UpdateIssue(ctx, sub.ID, IssueUpdateInput{StateID: &cancelID}); err != nil {
			return err
		}
	}
	if !parent.Closed() {
		if err := b.client.UpdateIssue(ctx, parent.ID, IssueUpdateInput{StateID: &cancelID}); err != nil {
			return err
		}
	}
	return nil
}

// --- Spec files ---

// ReadSpecFile returns one spec document with its marker stripped.
func (b *Backend) ReadSpecFile(ctx context.Context, project, specID string, ft backend.FileType) (string, error) {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return "", err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return "", err
	}
	return b.readSpecDocument(ctx, p.ID, specID, ft)
}

// WriteSpecFile replaces one spec document. Task writes additionally
// reconcile the issue tree.
func (b *Backend) WriteSpecFile(ctx context.Context, project, specID string, ft backend.FileType, content string) error {
	if ft == backend.FileTasks {
		_, err := b.SyncTasks(ctx, project, specID, content)
		return err
	}
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return err
	}
	return b.writeSpecDocument(ctx, p.ID, specID, ft, content)
}

// SyncTasks writes the tasks document and reconciles the spec's sub-issues
// against it. Implements backend.TaskSyncer.
func (b *Backend) SyncTasks(ctx context.Context, project, specID, content string) (string, error) {
	p, err := b.requireProject(ctx, project)
	if err != nil {
		return "", err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return "", err
	}
	if err := b.writeSpecDocument(ctx, p.ID, specID, backend.FileTasks, content); err != nil {
		return "", err
	}
	plan, err := b.reconcileTasks(ctx, p.ID, specID, content)
	if err != nil {
		return "", err
	}
	return plan.Summary(), nil
}

// readSpecDocument fetches one spec document and strips its marker. A
// document whose marker does not match the spec is treated as missing.
func (b *Backend) readSpecDocument(ctx context.Context, projectID, specID string, ft backend.FileType) (string, error) {
	doc, err := b.client.FindDocumentByTitle(ctx, projectID, documentTitle(specID, ft))
	if backend.IsKind(err, backend.KindNotFound) {
		return "", b.specNotFound(ctx, projectID, specID)
	}
	if err != nil {
		return "", err
	}
	m, ok := ExtractMarker(doc.Content)
	if !ok || m.Type != TypeSpec || m.SpecID != specID {
		return "", b.specNotFound(ctx, projectID, specID)
	}
	return StripMarker(doc.Content), nil
}

// writeSpecDocument re-attaches the marker and updates the document.
func (b *Backend) writeSpecDocument(ctx context.Context, projectID, specID string, ft backend.FileType, content string) error {
	doc, err := b.client.FindDocumentByTitle(ctx, projectID, documentTitle(specID, ft))
	if backend.IsKind(err, backend.KindNotFound) {
		return b.specNotFound(ctx, projectID, specID)
	}
	if err != nil {
		return err
	}
	return b.client.UpdateDocument(ctx, doc.ID, WithMarker(SpecMarker(specID), content))
}

// specNotFound builds a not_found carrying up to five existing spec IDs as
// candidates.
func (b *Backend) specNotFound(ctx context.Context, projectID, specID string) error {
	e := backend.NotFoundf("load_spec", "spec %q does not exist", specID).WithPath(specID)
	if infos, err := b.listSpecs(ctx, projectID); err == nil {
		for i, info := range infos {
			if i == 5 {
				break
			}
			e.Candidates = append(e.Candidates, info.ID)
		}
	}
	return e
}

// --- Task reconciliation ---

// reconcileTasks converges the spec's sub-issues toward the checklist.
// Mutations run in plan order and stop on the first error; the planner is
// idempotent, so a retry picks up where an interrupted run stopped.
func (b *Backend) reconcileTasks(ctx context.Context, projectID, specID, content string) (reconcile.Plan, error) {
	desired := tasklist.Parse(content).Items

	parent, err := b.ensureParentIssue(ctx, projectID, specID)
	if err != nil {
		return reconcile.Plan{}, err
	}
	subs, err := b.client.IssuesUnderParent(ctx, parent.ID)
	if err != nil {
		return reconcile.Plan{}, err
	}

	existing := make([]reconcile.RemoteTask, 0, len(subs))
	labelsByID := make(map[string][]string, len(subs))
	for _, sub := range subs {
		task := reconcile.RemoteTask{
			ID:      sub.ID,
			Title:   sub.Title,
			Closed:  sub.Closed(),
			Labeled: sub.HasLabel(LabelName),
		}
		if m, ok := FindMarker(sub.Description); ok && m.Type == TypeTask && m.SpecID == specID {
			task.Key = m.TaskKey
		}
		ids := make([]string, 0, len(sub.Labels.Nodes))
		for _, l := range sub.Labels.Nodes {
			ids = append(ids, l.ID)
		}
		labelsByID[sub.ID] = ids
		existing = append(existing, task)
	}

	plan := reconcile.Build(desired, existing)
	if plan.Empty() {
		return plan, nil
	}
	return plan, b.applyPlan(ctx, projectID, specID, parent.ID, plan, labelsByID)
}

// applyPlan executes the plan buckets in their fixed order: label fixes,
// creates, closes, reopens.
func (b *Backend) applyPlan(ctx context.Context, projectID, specID, parentID string, plan reconcile.Plan, labelsByID map[string][]string) error {
	labelID, err := b.foundryLabelID(ctx)
	if err != nil {
		return err
	}
	states, err := b.teamStates(ctx)
	if err != nil {
		return err
	}

	for _, id := range plan.LabelFixes {
		labels := append(labelsByID[id], labelID)
		if err := b.client.UpdateIssue(ctx, id, IssueUpdateInput{LabelIDs: &labels}); err != nil {
			return err
		}
	}
	for _, c := range plan.Creates {
		if _, err := b.client.CreateIssue(ctx, IssueCreateInput{
			TeamID:      b.teamID,
			ProjectID:   projectID,
			Title:       c.Text,
			Description: WithMarker(TaskMarker(specID, c.Key), ""),
			ParentID:    parentID,
			LabelIDs:    []string{labelID},
		}); err != nil {
			return err
		}
	}
	if len(plan.Closes) > 0 {
		doneID, ok := stateOfType(states, "completed")
		if !ok {
			return backend.Upstreamf("reconcile", "team %s has no completed state", b.teamID)
		}
		for _, id := range plan.Closes {
			if err := b.client.UpdateIssue(ctx, id, IssueUpdateInput{StateID: &doneID}); err != nil {
				return err
			}
		}
	}
	if len(plan.Reopens) > 0 {
		openID, ok := stateOfType(states, "unstarted", "backlog")
		if !ok {
			return backend.Upstreamf("reconcile", "team %s has no unstarted or backlog state", b.teamID)
		}
		for _, id := range plan.Reopens {
			if err := b.client.UpdateIssue(ctx, id, IssueUpdateInput{StateID: &openID}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureParentIssue finds the spec's parent issue, recreating it when the
// tree was pruned remotely.
func (b *Backend) ensureParentIssue(ctx context.Context, projectID, specID string) (*Issue, error) {
	parent, err := b.client.FindIssueByTitle(ctx, projectID, specID)
	if err == nil {
		return parent, nil
	}
	if !backend.IsKind(err, backend.KindNotFound) {
		return nil, err
	}
	labelID, err := b.foundryLabelID(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.CreateIssue(ctx, IssueCreateInput{
		TeamID:      b.teamID,
		ProjectID:   projectID,
		Title:       specID,
		Description: WithMarker(SpecMarker(specID), ""),
		LabelIDs:    []string{labelID},
	})
}

// --- Cached team metadata ---

// foundryLabelID resolves the foundry label once per process.
func (b *Backend) foundryLabelID(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.labelID == "" {
		id, err := b.client.EnsureLabel(ctx, b.teamID, LabelName)
		if err != nil {
			return "", err
		}
		b.labelID = id
	}
	return b.labelID, nil
}

// teamStates fetches and caches the team's workflow states.
func (b *Backend) teamStates(ctx context.Context) ([]WorkflowState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.states == nil {
		states, err := b.client.TeamStates(ctx, b.teamID)
		if err != nil {
			return nil, err
		}
		b.states = states
	}
	return b.states, nil
}

// stateOfType returns the first workflow state of the first type that has
// one.
func stateOfType(states []WorkflowState, types ...string) (string, bool) {
	for _, typ := range types {
		for _, s := range states {
			if s.Type == typ {
				return s.ID, true
			}
		}
	}
	return "", false
}

// parseTime parses Linear's ISO timestamps, zero value on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
