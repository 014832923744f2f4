// Package backend defines the storage contract shared by every foundry
// backend, plus the data types and error taxonomy that cross it.
//
// A backend stores projects and their specs. The two implementations
// (internal/local over the filesystem, internal/linear over the Linear API)
// are interchangeable behind the Backend interface; callers never branch on
// the concrete type. Polymorphism over the interface, classification over
// the Error kind:
//   - tools and the CLI depend on Backend, never on local or linear
//   - failures crossing the interface are *backend.Error values so the
//     operation layer can map them to user-facing reports without string
//     matching
package backend

import (
	"context"
	"fmt"
	"time"
)

// --- File type enum ---

// FileType identifies one of the three documents every spec carries.
type FileType string

const (
	FileSpec  FileType = "spec"
	FileTasks FileType = "tasks"
	FileNotes FileType = "notes"
)

// validFileTypes is the set of allowed file types.
var validFileTypes = map[FileType]bool{
	FileSpec:  true,
	FileTasks: true,
	FileNotes: true,
}

// ParseFileType validates a raw string and returns the typed value.
func ParseFileType(s string) (FileType, error) {
	ft := FileType(s)
	if !validFileTypes[ft] {
		return "", InvalidInputf("parse_file_type", "invalid file type %q: must be one of: spec, tasks, notes", s)
	}
	return ft, nil
}

// Filename returns the on-disk name for the file type.
func (ft FileType) Filename() string {
	switch ft {
	case FileTasks:
		return "task-list.md"
	case FileNotes:
		return "notes.md"
	default:
		return "spec.md"
	}
}

// FileTypes returns all file types in canonical order.
func FileTypes() []FileType {
	return []FileType{FileSpec, FileTasks, FileNotes}
}

// --- Core data structures ---

// ProjectSeed carries the initial content for a project's three
// context documents.
type ProjectSeed struct {
	Vision    string `json:"vision"`
	TechStack string `json:"tech_stack"`
	Summary   string `json:"summary"`
}

// SpecSeed carries the initial content for a spec's three files.
type SpecSeed struct {
	Spec  string `json:"spec"`
	Tasks string `json:"tasks"`
	Notes string `json:"notes"`
}

// ProjectInfo is the listing view of a project.
type ProjectInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	SpecCount int       `json:"spec_count"`
}

// Project is a fully loaded project: the three context documents plus
// the IDs of its specs, newest first.
type Project struct {
	Name      string   `json:"name"`
	Vision    string   `json:"vision"`
	TechStack string   `json:"tech_stack"`
	Summary   string   `json:"summary"`
	Specs     []string `json:"specs"`
}

// SpecInfo is the listing view of a spec.
type SpecInfo struct {
	ID        string    `json:"id"`
	Feature   string    `json:"feature"`
	CreatedAt time.Time `json:"created_at"`
}

// SpecContent holds the three documents of a spec.
type SpecContent struct {
	Spec  string `json:"spec"`
	Tasks string `json:"tasks"`
	Notes string `json:"notes"`
}

// Get returns the document for the given file type.
func (c SpecContent) Get(ft FileType) string {
	switch ft {
	case FileTasks:
		return c.Tasks
	case FileNotes:
		return c.Notes
	default:
		return c.Spec
	}
}

// Set replaces the document for the given file type.
func (c *SpecContent) Set(ft FileType, content string) {
	switch ft {
	case FileTasks:
		c.Tasks = content
	case FileNotes:
		c.Notes = content
	default:
		c.Spec = content
	}
}

// Spec is a fully loaded spec.
type Spec struct {
	ID      string      `json:"id"`
	Project string      `json:"project"`
	Content SpecContent `json:"content"`
}

// --- Backend contract ---

// Backend is the storage contract. Both front ends (MCP tools and the CLI)
// reach storage exclusively through it.
//
// Implementations return *Error values for every anticipated failure; a
// plain error indicates a bug or an environment problem and is reported
// with kind internal.
type Backend interface {
	// Name identifies the backend ("local" or "linear") for envelopes
	// and the journal.
	Name() string

	CreateProject(ctx context.Context, name string, seed ProjectSeed) (*Project, error)
	LoadProject(ctx context.Context, name string) (*Project, error)
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	// DeleteProject removes a project and everything under it. The
	// confirm-token check happens in the operation layer, not here.
	DeleteProject(ctx context.Context, name string) error

	CreateSpec(ctx context.Context, project, feature string, seed SpecSeed) (*Spec, error)
	LoadSpec(ctx context.Context, project, specID string) (*Spec, error)
	ListSpecs(ctx context.Context, project string) ([]SpecInfo, error)
	DeleteSpec(ctx context.Context, project, specID string) error

	// ReadSpecFile returns one document of a spec.
	ReadSpecFile(ctx context.Context, project, specID string, ft FileType) (string, error)
	// WriteSpecFile replaces one document of a spec. This is the only
	// mutation primitive for spec content; the edit engines decide what
	// to write, backends decide how.
	WriteSpecFile(ctx context.Context, project, specID string, ft FileType, content string) error
}

// TaskSyncer is an optional Backend extension for backends that mirror the
// task list into an external tracker. SyncTasks writes the tasks document
// and reconciles tracker issues against it; the summary is one sentence
// describing the applied plan ("2 to create, 1 to close"). WriteSpecFile on
// the tasks file must behave identically, minus the summary.
type TaskSyncer interface {
	SyncTasks(ctx context.Context, project, specID, content string) (summary string, err error)
}

// Describe renders a one-line summary used in envelopes and journal detail.
func (i SpecInfo) Describe() string {
	return fmt.Sprintf("%s (created %s)", i.ID, i.CreatedAt.Format("2006-01-02 15:04"))
}
