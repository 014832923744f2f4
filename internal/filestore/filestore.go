// Package filestore provides the rooted, atomic file store the local
// backend is built on.
//
// Every path is resolved relative to a single root directory and must stay
// inside it; traversal outside the root is rejected before any I/O happens.
// Writes are crash-safe: content lands in a temp file in the destination
// directory, is fsynced, and replaces the destination via rename, so a
// final path never holds a partial write. Replacing an existing file first
// shadows the previous content to a sibling .bak file.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/foundrymcp/foundry/internal/backend"
)

const (
	dirMode  = 0o755
	fileMode = 0o644

	// BackupSuffix is appended to a file's name to form its backup path.
	BackupSuffix = ".bak"
)

// Store is a file store rooted at a single directory.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("creating root %q: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// resolve turns a store-relative path into an absolute one, rejecting
// anything that would escape the root.
func (s *Store) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return s.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", backend.InvalidInputf("resolve_path", "path %q must be relative to the foundry root", rel)
	}
	abs := filepath.Join(s.root, filepath.Clean(rel))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", backend.InvalidInputf("resolve_path", "path %q escapes the foundry root", rel)
	}
	return abs, nil
}

// WriteFile atomically writes data to rel, creating parent directories as
// needed. An existing destination is first copied to rel+".bak", then
// replaced by rename so readers never observe a partial file.
func (s *Store) WriteFile(rel string, data []byte) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	if err := s.backup(path); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file for %q: %w", rel, err)
	}
	tempPath := tempFile.Name()
	defer func() {
		// No-ops once the write succeeded; cleans up on any early return.
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file for %q: %w", rel, err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file for %q: %w", rel, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file for %q: %w", rel, err)
	}
	if err := os.Chmod(tempPath, fileMode); err != nil {
		return fmt.Errorf("setting mode on temp file for %q: %w", rel, err)
	}

	// Atomic replace.
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing %q: %w", rel, err)
	}
	return nil
}

// backup copies the current content of path to path+".bak" when the file
// exists. The copy happens before the temp write so a crash mid-sequence
// leaves either the old file or the old file plus its backup.
func (s *Store) backup(path string) error {
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %q for backup: %w", path, err)
	}
	if err := os.WriteFile(path+BackupSuffix, current, fileMode); err != nil {
		return fmt.Errorf("writing backup of %q: %w", path, err)
	}
	return nil
}

// ReadFile returns the content of rel. A missing file maps to a not_found
// error so callers can classify without inspecting errno.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, backend.NotFoundf("read_file", "file does not exist").WithPath(rel)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", rel, err)
	}
	return data, nil
}

// Exists reports whether rel exists (file or directory).
func (s *Store) Exists(rel string) (bool, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", rel, err)
	}
	return true, nil
}

// Stat returns file info for rel, not_found when absent.
func (s *Store) Stat(rel string) (fs.FileInfo, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, backend.NotFoundf("stat", "path does not exist").WithPath(rel)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", rel, err)
	}
	return info, nil
}

// MkdirAll creates rel and any missing parents.
func (s *Store) MkdirAll(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, dirMode); err != nil {
		return fmt.Errorf("creating directory %q: %w", rel, err)
	}
	return nil
}

// List returns the directory entries of rel, not_found when absent.
func (s *Store) List(rel string) ([]fs.DirEntry, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, backend.NotFoundf("list", "directory does not exist").WithPath(rel)
	}
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", rel, err)
	}
	return entries, nil
}

// Remove deletes the file at rel along with its .bak shadow when present.
// Removing a missing file is not an error.
func (s *Store) Remove(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", rel, err)
	}
	if err := os.Remove(path + BackupSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing backup of %q: %w", rel, err)
	}
	return nil
}

// RemoveAll deletes rel recursively. Removing a missing tree is not an
// error.
func (s *Store) RemoveAll(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if path == s.root {
		return backend.InvalidInputf("remove_all", "refusing to remove the foundry root")
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %q: %w", rel, err)
	}
	return nil
}
