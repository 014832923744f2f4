// Package local implements the filesystem backend: projects and specs as
// markdown trees under the foundry root, written through the atomic
// filestore.
//
// Layout:
//
//	<root>/
//	  <project>/
//	    vision.md
//	    tech-stack.md
//	    summary.md
//	    specs/
//	      YYYYMMDD_HHMMSS_<feature>/
//	        spec.md
//	        task-list.md
//	        notes.md
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/filestore"
)

const (
	visionFile    = "vision.md"
	techStackFile = "tech-stack.md"
	summaryFile   = "summary.md"
	specsDir      = "specs"
)

// contextFiles are the three documents every project directory carries.
// Listing treats a directory without all three as not-a-project.
var contextFiles = []string{visionFile, techStackFile, summaryFile}

// timeNow is a seam for spec ID minting in tests.
var timeNow = time.Now

// Backend stores projects under a filestore root.
type Backend struct {
	fs *filestore.Store
}

// New creates a local backend rooted at dir.
func New(dir string) (*Backend, error) {
	fs, err := filestore.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening foundry root: %w", err)
	}
	return &Backend{fs: fs}, nil
}

// Name identifies this backend in envelopes and the journal.
func (b *Backend) Name() string { return "local" }

// Root returns the absolute root directory.
func (b *Backend) Root() string { return b.fs.Root() }

// --- Projects ---

// CreateProject validates the name, builds the project directory, and
// writes the three context documents.
func (b *Backend) CreateProject(ctx context.Context, name string, seed backend.ProjectSeed) (*backend.Project, error) {
	if err := backend.ValidateProjectName(name); err != nil {
		return nil, err
	}
	exists, err := b.fs.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, backend.Conflictf("create_project", "project %q already exists", name).WithPath(name)
	}

	docs := map[string]string{
		visionFile:    seed.Vision,
		techStackFile: seed.TechStack,
		summaryFile:   seed.Summary,
	}
	for file, content := range docs {
		if err := b.fs.WriteFile(filepath.Join(name, file), []byte(content)); err != nil {
			return nil, err
		}
	}
	if err := b.fs.MkdirAll(filepath.Join(name, specsDir)); err != nil {
		return nil, err
	}

	return &backend.Project{
		Name:      name,
		Vision:    seed.Vision,
		TechStack: seed.TechStack,
		Summary:   seed.Summary,
		Specs:     []string{},
	}, nil
}

// LoadProject reads the three context documents and the spec IDs,
// newest first.
func (b *Backend) LoadProject(ctx context.Context, name string) (*backend.Project, error) {
	if err := b.requireProject(name); err != nil {
		return nil, err
	}

	p := &backend.Project{Name: name, Specs: []string{}}
	reads := []struct {
		file string
		dst  *string
	}{
		{visionFile, &p.Vision},
		{techStackFile, &p.TechStack},
		{summaryFile, &p.Summary},
	}
	for _, r := range reads {
		data, err := b.fs.ReadFile(filepath.Join(name, r.file))
		if err != nil {
			return nil, err
		}
		*r.dst = string(data)
	}

	infos, err := b.ListSpecs(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		p.Specs = append(p.Specs, info.ID)
	}
	return p, nil
}

// ListProjects enumerates root subdirectories that hold all three context
// documents. Stray files, backups, and half-created directories are
// skipped, never errors.
func (b *Backend) ListProjects(ctx context.Context) ([]backend.ProjectInfo, error) {
	entries, err := b.fs.List(".")
	if err != nil {
		return nil, err
	}

	infos := []backend.ProjectInfo{}
	for _, e := range entries {
		if !e.IsDir() || !b.isProjectDir(e.Name()) {
			continue
		}
		info := backend.ProjectInfo{Name: e.Name()}
		if fi, err := b.fs.Stat(e.Name()); err == nil {
			info.CreatedAt = fi.ModTime()
		}
		if specs, err := b.ListSpecs(ctx, e.Name()); err == nil {
			info.SpecCount = len(specs)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteProject removes the project tree. The confirm-token check happens
// in the operation layer.
func (b *Backend) DeleteProject(ctx context.Context, name string) error {
	if err := b.requireProject(name); err != nil {
		return err
	}
	return b.fs.RemoveAll(name)
}

// isProjectDir reports whether dir carries all three context documents.
func (b *Backend) isProjectDir(dir string) bool {
	for _, file := range contextFiles {
		ok, err := b.fs.Exists(filepath.Join(dir, file))
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// requireProject fails with not_found (plus nearest-name candidates) when
// the project does not exist.
func (b *Backend) requireProject(name string) error {
	if err := backend.ValidateProjectName(name); err != nil {
		return err
	}
	if b.isProjectDir(name) {
		return nil
	}
	e := backend.NotFoundf("load_project", "project %q does not exist", name).WithPath(name)
	e.Candidates = b.nearestProjects(name)
	return e
}

// nearestProjects lists existing project names that share a prefix with
// the missing one.
func (b *Backend) nearestProjects(name string) []string {
	entries, err := b.fs.List(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && b.isProjectDir(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return backend.NearestNames(name, names)
}

// --- Specs ---

// CreateSpec mints a spec ID from the current time and the feature slug,
// then writes the three files. ID collisions within the same second get a
// numbered suffix on the feature part.
func (b *Backend) CreateSpec(ctx context.Context, project, feature string, seed backend.SpecSeed) (*backend.Spec, error) {
	if err := b.requireProject(project); err != nil {
		return nil, err
	}
	if err := backend.ValidateFeature(feature); err != nil {
		return nil, err
	}

	base := backend.NewSpecID(timeNow().UTC(), feature)
	specID := base
	for n := 2; ; n++ {
		exists, err := b.fs.Exists(b.specPath(project, specID))
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		specID = fmt.Sprintf("%s_%d", base, n)
	}

	files := map[backend.FileType]string{
		backend.FileSpec:  seed.Spec,
		backend.FileTasks: seed.Tasks,
		backend.FileNotes: seed.Notes,
	}
	for ft, content := range files {
		if err := b.fs.WriteFile(b.specFilePath(project, specID, ft), []byte(content)); err != nil {
			return nil, err
		}
	}

	return &backend.Spec{
		ID:      specID,
		Project: project,
		Content: backend.SpecContent{Spec: seed.Spec, Tasks: seed.Tasks, Notes: seed.Notes},
	}, nil
}

// LoadSpec reads all three files of a spec.
func (b *Backend) LoadSpec(ctx context.Context, project, specID string) (*backend.Spec, error) {
	if err := b.requireSpec(project, specID); err != nil {
		return nil, err
	}
	spec := &backend.Spec{ID: specID, Project: project}
	for _, ft := range backend.FileTypes() {
		data, err := b.fs.ReadFile(b.specFilePath(project, specID, ft))
		if err != nil {
			return nil, err
		}
		spec.Content.Set(ft, string(data))
	}
	return spec, nil
}

// ListSpecs enumerates spec directories, newest first. Directories that
// do not look like spec IDs are skipped.
func (b *Backend) ListSpecs(ctx context.Context, project string) ([]backend.SpecInfo, error) {
	if err := b.requireProject(project); err != nil {
		return nil, err
	}

	entries, err := b.fs.List(filepath.Join(project, specsDir))
	if backend.IsKind(err, backend.KindNotFound) {
		// Legacy or hand-built project without a specs directory.
		return []backend.SpecInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	infos := []backend.SpecInfo{}
	for _, e := range entries {
		if !e.IsDir() || !backend.LooksLikeSpecID(e.Name()) {
			continue
		}
		info := backend.SpecInfo{ID: e.Name(), Feature: backend.FeatureOf(e.Name())}
		if t, ok := backend.SpecTime(e.Name()); ok {
			info.CreatedAt = t
		} else if fi, err := b.fs.Stat(filepath.Join(project, specsDir, e.Name())); err == nil {
			info.CreatedAt = fi.ModTime()
		}
		infos = append(infos, info)
	}

	// Spec IDs sort chronologically because of the timestamp prefix.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID > infos[j].ID })
	return infos, nil
}

// DeleteSpec removes the spec directory.
func (b *Backend) DeleteSpec(ctx context.Context, project, specID string) error {
	if err := b.requireSpec(project, specID); err != nil {
		return err
	}
	return b.fs.RemoveAll(b.specPath(project, specID))
}

// ReadSpecFile returns one document of a spec.
func (b *Backend) ReadSpecFile(ctx context.Context, project, specID string, ft backend.FileType) (string, error) {
	if err := b.requireSpec(project, specID); err != nil {
		return "", err
	}
	data, err := b.fs.ReadFile(b.specFilePath(project, specID, ft))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteSpecFile atomically replaces one document of a spec.
func (b *Backend) WriteSpecFile(ctx context.Context, project, specID string, ft backend.FileType, content string) error {
	if err := b.requireSpec(project, specID); err != nil {
		return err
	}
	return b.fs.WriteFile(b.specFilePath(project, specID, ft), []byte(content))
}

// requireSpec fails with not_found (plus the project's existing spec IDs
// as candidates) when the spec does not exist.
func (b *Backend) requireSpec(project, specID string) error {
	if err := b.requireProject(project); err != nil {
		return err
	}
	if err := backend.ValidateSpecID(specID); err != nil {
		return err
	}
	ok, err := b.fs.Exists(b.specPath(project, specID))
	if err != nil {
		return err
	}
	if !ok {
		e := backend.NotFoundf("load_spec", "spec %q does not exist in project %q", specID, project).
			WithPath(filepath.Join(project, specsDir, specID))
		if infos, err := b.ListSpecs(context.Background(), project); err == nil {
			for i, info := range infos {
				if i == 5 {
					break
				}
				e.Candidates = append(e.Candidates, info.ID)
			}
		}
		return e
	}
	return nil
}

func (b *Backend) specPath(project, specID string) string {
	return filepath.Join(project, specsDir, specID)
}

func (b *Backend) specFilePath(project, specID string, ft backend.FileType) string {
	return filepath.Join(project, specsDir, specID, ft.Filename())
}
