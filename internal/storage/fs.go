package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/checksum"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the workspace directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute workspace directory.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: storage: absolute paths not allowed: %s", apperr.ErrPrecondition, rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("%w: storage: resolve path: %w", apperr.ErrIOFailure, err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("%w: storage: path escapes workspace root: %s", apperr.ErrPrecondition, rel)
	}
	return abs, nil
}

// List walks dir and returns metadata for every file accepted by match.
func (f *FS) List(dir string, match func(name string) bool) ([]FileInfo, error) {
	base, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != base {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || (match != nil && !match(d.Name())) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, FileInfo{
			Path:      rel,
			Size:      info.Size(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: storage: list: %w", apperr.ErrIOFailure, err)
	}
	return out, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: storage: read %s: %w", apperr.ErrIOFailure, path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: storage: mkdir: %w", apperr.ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(dir, ".dataforge-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: storage: create temp: %w", apperr.ErrIOFailure, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: storage: write temp: %w", apperr.ErrIOFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: storage: fsync: %w", apperr.ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: storage: close temp: %w", apperr.ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("%w: storage: rename: %w", apperr.ErrIOFailure, err)
	}
	success = true
	return nil
}
