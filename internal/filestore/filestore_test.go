package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foundrymcp/foundry/internal/backend"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// --- Write / Read round trip ---

func TestWriteFile_CreatesParents(t *testing.T) {
	s := newStore(t)

	if err := s.WriteFile("demo/specs/spec.md", []byte("# Spec\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := s.ReadFile("demo/specs/spec.md")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "# Spec\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFile_FinalMode(t *testing.T) {
	s := newStore(t)

	if err := s.WriteFile("demo/vision.md", []byte("v")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "demo", "vision.md"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteFile_NoTempLeftovers(t *testing.T) {
	s := newStore(t)

	if err := s.WriteFile("demo/notes.md", []byte("n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(s.Root(), "demo"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// --- Backup shadow ---

func TestWriteFile_BackupOnReplace(t *testing.T) {
	s := newStore(t)

	if err := s.WriteFile("demo/vision.md", []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// First write of a fresh file leaves no backup.
	if ok, _ := s.Exists("demo/vision.md" + BackupSuffix); ok {
		t.Fatal("backup exists after first write")
	}

	if err := s.WriteFile("demo/vision.md", []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	bak, err := s.ReadFile("demo/vision.md" + BackupSuffix)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(bak) != "first" {
		t.Errorf("backup = %q, want first", bak)
	}

	if err := s.WriteFile("demo/vision.md", []byte("third")); err != nil {
		t.Fatalf("third write: %v", err)
	}
	bak, _ = s.ReadFile("demo/vision.md" + BackupSuffix)
	if string(bak) != "second" {
		t.Errorf("backup after third write = %q, want second", bak)
	}
}

// --- Path safety ---

func TestResolve_RejectsEscapes(t *testing.T) {
	s := newStore(t)

	cases := []string{
		"../outside.md",
		"demo/../../outside.md",
		"/etc/passwd",
	}
	for _, rel := range cases {
		err := s.WriteFile(rel, []byte("x"))
		if err == nil {
			t.Errorf("WriteFile(%q) = nil, want error", rel)
			continue
		}
		if backend.KindOf(err) != backend.KindInvalidInput {
			t.Errorf("WriteFile(%q) kind = %s, want invalid_input", rel, backend.KindOf(err))
		}
	}
}

func TestResolve_InternalDotDotStaysInside(t *testing.T) {
	s := newStore(t)

	// Cleans to demo/vision.md, which is inside the root.
	if err := s.WriteFile("demo/specs/../vision.md", []byte("v")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if ok, _ := s.Exists("demo/vision.md"); !ok {
		t.Error("cleaned path not written")
	}
}

// --- Missing files ---

func TestReadFile_NotFoundKind(t *testing.T) {
	s := newStore(t)

	_, err := s.ReadFile("missing.md")
	if backend.KindOf(err) != backend.KindNotFound {
		t.Errorf("kind = %s, want not_found", backend.KindOf(err))
	}
}

func TestRemove_MissingIsNoError(t *testing.T) {
	s := newStore(t)
	if err := s.Remove("missing.md"); err != nil {
		t.Errorf("Remove(missing) = %v, want nil", err)
	}
}

func TestRemove_DropsBackupToo(t *testing.T) {
	s := newStore(t)

	_ = s.WriteFile("demo/notes.md", []byte("a"))
	_ = s.WriteFile("demo/notes.md", []byte("b"))
	if err := s.Remove("demo/notes.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := s.Exists("demo/notes.md" + BackupSuffix); ok {
		t.Error("backup survived Remove")
	}
}

func TestRemoveAll_RefusesRoot(t *testing.T) {
	s := newStore(t)
	if err := s.RemoveAll("."); err == nil {
		t.Error("RemoveAll(.) = nil, want error")
	}
}
