// Package ops implements the operation layer shared by the MCP tools and
// the CLI: one typed method per operation. Each validates its input, calls
// the backend, journals mutations, and builds the response envelope. This
// is the single place validation_status, next_steps, and workflow_hints
// are decided.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/editor"
	"github.com/foundrymcp/foundry/internal/journal"
	"github.com/foundrymcp/foundry/internal/tasklist"
)

// minContextChars is the size under which a context document earns a
// "needs more context" hint.
const minContextChars = 200

// Env bundles what every operation needs: the storage backend and the
// journal. A nil Journal disables history without disabling anything else.
type Env struct {
	Backend backend.Backend
	Journal *journal.Journal
}

// --- Payload types ---

// TaskStats summarizes a parsed task list.
type TaskStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

// Open returns the number of unfinished tasks.
func (s TaskStats) Open() int { return s.Total - s.Done }

// SpecView is the LoadSpec payload: the spec plus parsed task counts.
type SpecView struct {
	*backend.Spec
	Tasks TaskStats `json:"task_stats"`
}

// Deletion is the payload of the two delete operations.
type Deletion struct {
	Project string `json:"project"`
	SpecID  string `json:"spec_id,omitempty"`
}

// UpdateResult is the UpdateSpec payload. Exactly one of Commands and
// Patches is set for the engine modes; Replaced names the file for the
// replace mode. TaskSync carries the remote reconcile summary when a task
// write went through a syncing backend.
type UpdateResult struct {
	Commands *editor.BatchReport `json:"commands,omitempty"`
	Patches  *editor.PatchReport `json:"patches,omitempty"`
	Replaced backend.FileType    `json:"replaced,omitempty"`
	TaskSync string              `json:"task_sync,omitempty"`
}

// Failed reports how many commands or patches in the batch failed.
func (r *UpdateResult) Failed() int {
	switch {
	case r.Commands != nil:
		return r.Commands.Failed
	case r.Patches != nil:
		return r.Patches.Failed
	default:
		return 0
	}
}

// FileHealth is the per-document entry in a validation report.
type FileHealth struct {
	File  backend.FileType `json:"file"`
	Name  string           `json:"name"`
	Bytes int              `json:"bytes"`
	Empty bool             `json:"empty"`
}

// ValidationReport is the read-only ValidateSpec payload.
type ValidationReport struct {
	Project string       `json:"project"`
	SpecID  string       `json:"spec_id"`
	Files   []FileHealth `json:"files"`
	Tasks   TaskStats    `json:"task_stats"`
}

// --- Project operations ---

// CreateProjectParams carries the create-project input.
type CreateProjectParams struct {
	Name      string
	Vision    string
	TechStack string
	Summary   string
}

// CreateProject creates a project with its three context documents.
func (e *Env) CreateProject(ctx context.Context, p CreateProjectParams) (*backend.Envelope, error) {
	start := time.Now()
	project, err := e.Backend.CreateProject(ctx, p.Name, backend.ProjectSeed{
		Vision:    p.Vision,
		TechStack: p.TechStack,
		Summary:   p.Summary,
	})
	e.record(ctx, "create_project", p.Name, "", start, "created", err)
	if err != nil {
		return nil, err
	}

	env := backend.Incomplete(project, "Create a spec with create-spec to start planning work.")
	for _, h := range contextHints(project) {
		env.Hint(h)
	}
	return env, nil
}

// LoadProject returns the full project: documents plus spec IDs.
func (e *Env) LoadProject(ctx context.Context, name string) (*backend.Envelope, error) {
	project, err := e.Backend.LoadProject(ctx, name)
	if err != nil {
		return nil, err
	}

	var env *backend.Envelope
	if len(project.Specs) == 0 {
		env = backend.Incomplete(project, "Create a spec with create-spec to start planning work.")
	} else {
		env = backend.Complete(project, fmt.Sprintf("Load a spec with load-spec; newest is %s.", project.Specs[0]))
	}
	for _, h := range contextHints(project) {
		env.Hint(h)
	}
	return env, nil
}

// ListProjects lists every project the backend knows about.
func (e *Env) ListProjects(ctx context.Context) (*backend.Envelope, error) {
	infos, err := e.Backend.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return backend.Incomplete(infos, "No projects yet. Create one with create-project."), nil
	}
	return backend.Complete(infos, "Load a project with load-project to see its context and specs."), nil
}

// DeleteProjectParams carries the delete-project input. Confirm must equal
// the project name.
type DeleteProjectParams struct {
	Name    string
	Confirm string
}

// DeleteProject removes a project and everything under it.
func (e *Env) DeleteProject(ctx context.Context, p DeleteProjectParams) (*backend.Envelope, error) {
	if p.Confirm != p.Name {
		return nil, backend.InvalidInputf("delete_project",
			"deleting a project is destructive: pass confirm=%q to proceed", p.Name)
	}

	start := time.Now()
	err := e.Backend.DeleteProject(ctx, p.Name)
	e.record(ctx, "delete_project", p.Name, "", start, "deleted", err)
	if err != nil {
		return nil, err
	}
	return backend.Complete(Deletion{Project: p.Name}, "List remaining projects with list-projects."), nil
}

// --- Spec operations ---

// CreateSpecParams carries the create-spec input.
type CreateSpecParams struct {
	Project string
	Feature string
	Spec    string
	Tasks   string
	Notes   string
}

// CreateSpec mints a spec ID and writes the three spec files.
func (e *Env) CreateSpec(ctx context.Context, p CreateSpecParams) (*backend.Envelope, error) {
	start := time.Now()
	spec, err := e.Backend.CreateSpec(ctx, p.Project, p.Feature, backend.SpecSeed{
		Spec:  p.Spec,
		Tasks: p.Tasks,
		Notes: p.Notes,
	})
	specID := ""
	if spec != nil {
		specID = spec.ID
	}
	e.record(ctx, "create_spec", p.Project, specID, start, "created "+specID, err)
	if err != nil {
		return nil, err
	}

	stats := taskStats(spec.Content.Tasks)
	var env *backend.Envelope
	if stats.Total == 0 {
		env = backend.Incomplete(spec, "Add tasks with update-spec upsert_task commands.")
	} else {
		env = backend.Incomplete(spec, "Mark tasks done with update-spec as you finish them.")
	}
	if strings.TrimSpace(spec.Content.Spec) == "" {
		env.Hint("spec.md is empty; describe the feature and its acceptance criteria before starting work")
	}
	return env, nil
}

// LoadSpec returns all three documents plus task stats.
func (e *Env) LoadSpec(ctx context.Context, project, specID string) (*backend.Envelope, error) {
	spec, err := e.Backend.LoadSpec(ctx, project, specID)
	if err != nil {
		return nil, err
	}

	view := &SpecView{Spec: spec, Tasks: taskStats(spec.Content.Tasks)}
	switch {
	case view.Tasks.Total == 0:
		return backend.Incomplete(view, "Add tasks with update-spec upsert_task commands."), nil
	case view.Tasks.Done < view.Tasks.Total:
		return backend.Incomplete(view, "Mark tasks done with update-spec as you finish them."), nil
	default:
		return backend.Complete(view, "All tasks are done. Create the next spec with create-spec."), nil
	}
}

// ListSpecs lists a project's specs, newest first.
func (e *Env) ListSpecs(ctx context.Context, project string) (*backend.Envelope, error) {
	infos, err := e.Backend.ListSpecs(ctx, project)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return backend.Incomplete(infos, "No specs yet. Create one with create-spec."), nil
	}
	return backend.Complete(infos, fmt.Sprintf("Load the newest spec with load-spec %s %s.", project, infos[0].ID)), nil
}

// DeleteSpecParams carries the delete-spec input. Confirm must equal the
// spec ID.
type DeleteSpecParams struct {
	Project string
	SpecID  string
	Confirm string
}

// DeleteSpec removes one spec.
func (e *Env) DeleteSpec(ctx context.Context, p DeleteSpecParams) (*backend.Envelope, error) {
	if p.Confirm != p.SpecID {
		return nil, backend.InvalidInputf("delete_spec",
			"deleting a spec is destructive: pass confirm=%q to proceed", p.SpecID)
	}

	start := time.Now()
	err := e.Backend.DeleteSpec(ctx, p.Project, p.SpecID)
	e.record(ctx, "delete_spec", p.Project, p.SpecID, start, "deleted", err)
	if err != nil {
		return nil, err
	}
	return backend.Complete(Deletion{Project: p.Project, SpecID: p.SpecID},
		fmt.Sprintf("List remaining specs with list-specs %s.", p.Project)), nil
}

// --- Update ---

// ReplaceFile is the whole-document mode of UpdateSpec.
type ReplaceFile struct {
	File    backend.FileType `json:"file"`
	Content string           `json:"content"`
}

// UpdateSpecParams carries the update-spec input. Exactly one of Commands,
// Patches, and Replace must be set.
type UpdateSpecParams struct {
	Project  string
	SpecID   string
	Commands []editor.Command
	Patches  []editor.Patch
	Replace  *ReplaceFile
}

// UpdateSpec mutates spec content through one of the three modes. Engine
// modes evaluate the whole batch and write nothing when any step fails;
// the envelope always carries the full report.
func (e *Env) UpdateSpec(ctx context.Context, p UpdateSpecParams) (*backend.Envelope, error) {
	modes := 0
	if len(p.Commands) > 0 {
		modes++
	}
	if len(p.Patches) > 0 {
		modes++
	}
	if p.Replace != nil {
		modes++
	}
	if modes != 1 {
		return nil, backend.InvalidInputf("update_spec",
			"provide exactly one of commands, patches, or replace")
	}

	start := time.Now()
	env, detail, err := e.applyUpdate(ctx, p)
	e.record(ctx, "update_spec", p.Project, p.SpecID, start, detail, err)
	return env, err
}

func (e *Env) applyUpdate(ctx context.Context, p UpdateSpecParams) (*backend.Envelope, string, error) {
	switch {
	case len(p.Commands) > 0:
		return e.applyCommands(ctx, p)
	case len(p.Patches) > 0:
		return e.applyPatches(ctx, p)
	default:
		return e.applyReplace(ctx, p)
	}
}

func (e *Env) applyCommands(ctx context.Context, p UpdateSpecParams) (*backend.Envelope, string, error) {
	targets := make([]backend.FileType, 0, 3)
	seen := map[backend.FileType]bool{}
	for _, c := range p.Commands {
		if !seen[c.Target] {
			seen[c.Target] = true
			targets = append(targets, c.Target)
		}
	}

	docs, err := e.readTargets(ctx, p.Project, p.SpecID, targets)
	if err != nil {
		return nil, "", err
	}
	updated, report, err := editor.Apply(docs, p.Commands)
	if err != nil {
		return nil, "", err
	}

	detail := "commands: " + report.Summary()
	result := &UpdateResult{Commands: report}
	if report.Failed > 0 {
		return failedBatchEnvelope(result), detail, nil
	}

	sync, err := e.writeDocs(ctx, p.Project, p.SpecID, updated)
	if err != nil {
		return nil, detail, err
	}
	result.TaskSync = sync
	return backend.Complete(result, updateNextSteps(report.Applied, sync)...), detail, nil
}

func (e *Env) applyPatches(ctx context.Context, p UpdateSpecParams) (*backend.Envelope, string, error) {
	targets := make([]backend.FileType, 0, 3)
	seen := map[backend.FileType]bool{}
	for _, pt := range p.Patches {
		if !seen[pt.Target] {
			seen[pt.Target] = true
			targets = append(targets, pt.Target)
		}
	}

	docs, err := e.readTargets(ctx, p.Project, p.SpecID, targets)
	if err != nil {
		return nil, "", err
	}
	updated, report, err := editor.ApplyPatches(docs, p.Patches)
	if err != nil {
		return nil, "", err
	}

	detail := "patches: " + report.Summary()
	result := &UpdateResult{Patches: report}
	if report.Failed > 0 {
		return failedBatchEnvelope(result), detail, nil
	}

	sync, err := e.writeDocs(ctx, p.Project, p.SpecID, updated)
	if err != nil {
		return nil, detail, err
	}
	result.TaskSync = sync
	return backend.Complete(result, updateNextSteps(report.Applied, sync)...), detail, nil
}

func (e *Env) applyReplace(ctx context.Context, p UpdateSpecParams) (*backend.Envelope, string, error) {
	ft, err := backend.ParseFileType(string(p.Replace.File))
	if err != nil {
		return nil, "", err
	}

	sync, err := e.writeDocs(ctx, p.Project, p.SpecID, map[backend.FileType]string{ft: p.Replace.Content})
	if err != nil {
		return nil, "", err
	}

	detail := "replace: " + string(ft)
	result := &UpdateResult{Replaced: ft, TaskSync: sync}
	steps := []string{fmt.Sprintf("Replaced %s. Review it with load-spec.", ft.Filename())}
	if sync != "" {
		steps = append(steps, "Task sync: "+sync+".")
	}
	return backend.Complete(result, steps...), detail, nil
}

// readTargets loads the documents a batch touches, nothing more.
func (e *Env) readTargets(ctx context.Context, project, specID string, fts []backend.FileType) (map[backend.FileType]string, error) {
	docs := make(map[backend.FileType]string, len(fts))
	for _, ft := range fts {
		content, err := e.Backend.ReadSpecFile(ctx, project, specID, ft)
		if err != nil {
			return nil, err
		}
		docs[ft] = content
	}
	return docs, nil
}

// writeDocs persists updated documents in canonical order, routing the
// tasks file through the backend's task syncer when it has one so the
// reconcile summary can surface in next_steps.
func (e *Env) writeDocs(ctx context.Context, project, specID string, updated map[backend.FileType]string) (string, error) {
	sync := ""
	for _, ft := range backend.FileTypes() {
		content, ok := updated[ft]
		if !ok {
			continue
		}
		if ft == backend.FileTasks {
			if ts, ok := e.Backend.(backend.TaskSyncer); ok {
				summary, err := ts.SyncTasks(ctx, project, specID, content)
				if err != nil {
					return "", err
				}
				sync = summary
				continue
			}
		}
		if err := e.Backend.WriteSpecFile(ctx, project, specID, ft, content); err != nil {
			return "", err
		}
	}
	return sync, nil
}

func failedBatchEnvelope(result *UpdateResult) *backend.Envelope {
	return backend.Incomplete(result,
		"No changes were written. Fix the failed steps using the candidates in the report and retry.")
}

func updateNextSteps(applied int, sync string) []string {
	var steps []string
	if applied == 0 {
		steps = append(steps, "Everything was already applied; no files changed.")
	} else {
		steps = append(steps, "Review the updated documents with load-spec.")
	}
	if sync != "" {
		steps = append(steps, "Task sync: "+sync+".")
	}
	return steps
}

// --- Validate ---

// ValidateSpec builds a read-only health report: document sizes and task
// counts. It never mutates anything.
func (e *Env) ValidateSpec(ctx context.Context, project, specID string) (*backend.Envelope, error) {
	spec, err := e.Backend.LoadSpec(ctx, project, specID)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{
		Project: project,
		SpecID:  specID,
		Tasks:   taskStats(spec.Content.Tasks),
	}
	for _, ft := range backend.FileTypes() {
		content := spec.Content.Get(ft)
		report.Files = append(report.Files, FileHealth{
			File:  ft,
			Name:  ft.Filename(),
			Bytes: len(content),
			Empty: strings.TrimSpace(content) == "",
		})
	}

	var steps []string
	switch {
	case report.Tasks.Total == 0:
		steps = append(steps, "Add tasks with update-spec upsert_task commands.")
	case report.Tasks.Open() > 0:
		steps = append(steps, fmt.Sprintf("%d of %d tasks remain open. Mark tasks done with update-spec as you finish them.",
			report.Tasks.Open(), report.Tasks.Total))
	default:
		steps = append(steps, "All tasks are done. Create the next spec with create-spec.")
	}

	healthy := report.Tasks.Total > 0 && report.Tasks.Open() == 0
	var env *backend.Envelope
	if healthy {
		env = backend.Complete(report, steps...)
	} else {
		env = backend.Incomplete(report, steps...)
	}
	for _, f := range report.Files {
		if f.Empty {
			env.Hint(fmt.Sprintf("%s is empty; agents work better with more context", f.Name))
		}
	}
	return env, nil
}

// --- History ---

// HistoryParams carries the history input. Limit <= 0 means the journal
// default.
type HistoryParams struct {
	Project string
	Limit   int
}

// History returns recent journal entries, newest first.
func (e *Env) History(ctx context.Context, p HistoryParams) (*backend.Envelope, error) {
	entries, err := e.Journal.Recent(ctx, p.Project, p.Limit)
	if errors.Is(err, journal.ErrDisabled) {
		return nil, backend.Unavailablef("history", "the operation journal is disabled")
	}
	if err != nil {
		return nil, backend.Internalf("history", "%v", err)
	}
	if len(entries) == 0 {
		return backend.Complete(entries, "No operations recorded yet."), nil
	}
	return backend.Complete(entries), nil
}

// --- Helpers ---

// record journals one mutating operation. Failures to record are logged
// and swallowed; the journal is never load-bearing.
func (e *Env) record(ctx context.Context, op, project, specID string, start time.Time, detail string, opErr error) {
	entry := journal.Entry{
		Op:         op,
		Project:    project,
		SpecID:     specID,
		Backend:    e.Backend.Name(),
		Outcome:    "ok",
		DurationMS: time.Since(start).Milliseconds(),
		Detail:     detail,
	}
	if opErr != nil {
		entry.Outcome = "error"
		entry.Detail = opErr.Error()
	}
	if err := e.Journal.Record(ctx, entry); err != nil {
		log.Printf("WARNING: journal record: %v", err)
	}
}

func taskStats(content string) TaskStats {
	var st TaskStats
	for _, it := range tasklist.Parse(content).Items {
		st.Total++
		if it.Status == tasklist.StatusDone {
			st.Done++
		}
	}
	return st
}

// contextHints flags context documents too thin to orient an agent.
func contextHints(p *backend.Project) []string {
	var hints []string
	for _, doc := range []struct {
		name    string
		content string
	}{
		{"vision.md", p.Vision},
		{"tech-stack.md", p.TechStack},
		{"summary.md", p.Summary},
	} {
		if len(strings.TrimSpace(doc.content)) < minContextChars {
			hints = append(hints, fmt.Sprintf("%s is under %d characters; agents work better with more context", doc.name, minContextChars))
		}
	}
	return hints
}
