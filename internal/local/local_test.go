package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foundrymcp/foundry/internal/backend"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func seedProject(t *testing.T, b *Backend, name string) {
	t.Helper()
	_, err := b.CreateProject(context.Background(), name, backend.ProjectSeed{
		Vision:    "# Vision\n\nShip it.\n",
		TechStack: "# Tech Stack\n\nGo.\n",
		Summary:   "# Summary\n\nA demo.\n",
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", name, err)
	}
}

// --- Projects ---

func TestCreateProject_LayoutOnDisk(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	for _, file := range []string{"vision.md", "tech-stack.md", "summary.md"} {
		path := filepath.Join(b.Root(), "demo", file)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", file, err)
		}
	}
	if fi, err := os.Stat(filepath.Join(b.Root(), "demo", "specs")); err != nil || !fi.IsDir() {
		t.Errorf("specs/ directory missing: %v", err)
	}
}

func TestCreateProject_Conflict(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	_, err := b.CreateProject(context.Background(), "demo", backend.ProjectSeed{})
	if !backend.IsKind(err, backend.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCreateProject_RejectsInvalidNames(t *testing.T) {
	b := newTestBackend(t)

	for _, name := range []string{"", "Demo", "1demo", "specs", "tech-stack", strings.Repeat("a", 65)} {
		_, err := b.CreateProject(context.Background(), name, backend.ProjectSeed{})
		if !backend.IsKind(err, backend.KindInvalidInput) {
			t.Errorf("CreateProject(%q) err = %v, want invalid_input", name, err)
		}
	}
}

func TestListProjects_FiltersNonProjects(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "alpha")
	seedProject(t, b, "beta")

	// Noise: a stray file, a half-created directory, the journal db.
	if err := os.WriteFile(filepath.Join(b.Root(), "journal.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(b.Root(), "half-made"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := b.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "beta" {
		t.Fatalf("infos = %+v, want [alpha beta]", infos)
	}
}

func TestLoadProject_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	p, err := b.LoadProject(context.Background(), "demo")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.Vision != "# Vision\n\nShip it.\n" {
		t.Errorf("Vision = %q", p.Vision)
	}
	if p.TechStack != "# Tech Stack\n\nGo.\n" {
		t.Errorf("TechStack = %q", p.TechStack)
	}
	if len(p.Specs) != 0 {
		t.Errorf("Specs = %v, want empty", p.Specs)
	}
}

func TestLoadProject_NotFoundWithCandidates(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo-app")

	_, err := b.LoadProject(context.Background(), "demo-api")
	if !backend.IsKind(err, backend.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
	cands := backend.CandidatesOf(err)
	if len(cands) == 0 || cands[0] != "demo-app" {
		t.Errorf("candidates = %v, want [demo-app]", cands)
	}
}

func TestDeleteProject_RemovesTree(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	if err := b.DeleteProject(context.Background(), "demo"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Root(), "demo")); !os.IsNotExist(err) {
		t.Errorf("project directory still present: %v", err)
	}

	err := b.DeleteProject(context.Background(), "demo")
	if !backend.IsKind(err, backend.KindNotFound) {
		t.Errorf("second delete err = %v, want not_found", err)
	}
}

// --- Specs ---

func TestCreateSpec_MintsIDAndWritesFiles(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	timeNow = func() time.Time { return time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()

	spec, err := b.CreateSpec(context.Background(), "demo", "auth_feature", backend.SpecSeed{
		Spec:  "# Auth\n",
		Tasks: "- [ ] Implement login\n",
		Notes: "# Notes\n",
	})
	if err != nil {
		t.Fatalf("CreateSpec: %v", err)
	}
	if spec.ID != "20260825_143000_auth_feature" {
		t.Fatalf("ID = %q", spec.ID)
	}

	dir := filepath.Join(b.Root(), "demo", "specs", spec.ID)
	for _, file := range []string{"spec.md", "task-list.md", "notes.md"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("missing %s: %v", file, err)
		}
	}
}

func TestCreateSpec_CollisionSuffix(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	timeNow = func() time.Time { return time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()

	first, err := b.CreateSpec(context.Background(), "demo", "auth", backend.SpecSeed{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.CreateSpec(context.Background(), "demo", "auth", backend.SpecSeed{})
	if err != nil {
		t.Fatal(err)
	}
	third, err := b.CreateSpec(context.Background(), "demo", "auth", backend.SpecSeed{})
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != "20260825_143000_auth" {
		t.Errorf("first = %q", first.ID)
	}
	if second.ID != "20260825_143000_auth_2" {
		t.Errorf("second = %q", second.ID)
	}
	if third.ID != "20260825_143000_auth_3" {
		t.Errorf("third = %q", third.ID)
	}
}

func TestCreateSpec_InvalidFeature(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	for _, feature := range []string{"", "Auth", "auth-feature", "9lives"} {
		_, err := b.CreateSpec(context.Background(), "demo", feature, backend.SpecSeed{})
		if !backend.IsKind(err, backend.KindInvalidInput) {
			t.Errorf("CreateSpec(%q) err = %v, want invalid_input", feature, err)
		}
	}
}

func TestLoadSpec_RoundTripsBytes(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	seed := backend.SpecSeed{
		Spec:  "# Feature\n\n## Requirements\n- Item A\n",
		Tasks: "- [ ] Implement OAuth2 integration\n- [ ] Add password validation\n",
		Notes: "Nothing yet.\n",
	}
	created, err := b.CreateSpec(context.Background(), "demo", "auth", seed)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := b.LoadSpec(context.Background(), "demo", created.ID)
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if loaded.Content.Spec != seed.Spec || loaded.Content.Tasks != seed.Tasks || loaded.Content.Notes != seed.Notes {
		t.Errorf("content mismatch: %+v", loaded.Content)
	}
}

func TestListSpecs_NewestFirstSkipsStrays(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	if _, err := b.CreateSpec(context.Background(), "demo", "first", backend.SpecSeed{}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)
	if _, err := b.CreateSpec(context.Background(), "demo", "second", backend.SpecSeed{}); err != nil {
		t.Fatal(err)
	}

	// Stray directory that does not look like a spec ID.
	if err := os.MkdirAll(filepath.Join(b.Root(), "demo", "specs", "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := b.ListSpecs(context.Background(), "demo")
	if err != nil {
		t.Fatalf("ListSpecs: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d specs, want 2", len(infos))
	}
	if infos[0].ID != "20260825_143100_second" || infos[1].ID != "20260825_143000_first" {
		t.Errorf("order = [%s %s], want newest first", infos[0].ID, infos[1].ID)
	}
	if infos[0].Feature != "second" {
		t.Errorf("Feature = %q", infos[0].Feature)
	}
}

func TestWriteSpecFile_ReadBack(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	spec, err := b.CreateSpec(context.Background(), "demo", "auth", backend.SpecSeed{Tasks: "- [ ] Old\n"})
	if err != nil {
		t.Fatal(err)
	}

	updated := "- [x] Old\n- [ ] New\n"
	if err := b.WriteSpecFile(context.Background(), "demo", spec.ID, backend.FileTasks, updated); err != nil {
		t.Fatalf("WriteSpecFile: %v", err)
	}

	got, err := b.ReadSpecFile(context.Background(), "demo", spec.ID, backend.FileTasks)
	if err != nil {
		t.Fatalf("ReadSpecFile: %v", err)
	}
	if got != updated {
		t.Errorf("content = %q, want %q", got, updated)
	}

	// The previous content survives as a .bak sibling.
	bak := filepath.Join(b.Root(), "demo", "specs", spec.ID, "task-list.md.bak")
	data, err := os.ReadFile(bak)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(data) != "- [ ] Old\n" {
		t.Errorf("backup = %q", data)
	}
}

func TestDeleteSpec_NotFoundCandidates(t *testing.T) {
	b := newTestBackend(t)
	seedProject(t, b, "demo")

	timeNow = func() time.Time { return time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()
	spec, err := b.CreateSpec(context.Background(), "demo", "auth", backend.SpecSeed{})
	if err != nil {
		t.Fatal(err)
	}

	err = b.DeleteSpec(context.Background(), "demo", "20260825_143000_other")
	if !backend.IsKind(err, backend.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
	cands := backend.CandidatesOf(err)
	if len(cands) != 1 || cands[0] != spec.ID {
		t.Errorf("candidates = %v, want [%s]", cands, spec.ID)
	}

	if err := b.DeleteSpec(context.Background(), "demo", spec.ID); err != nil {
		t.Fatalf("DeleteSpec: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Root(), "demo", "specs", spec.ID)); !os.IsNotExist(err) {
		t.Errorf("spec directory still present")
	}
}
