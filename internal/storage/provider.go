// Package storage defines the workspace file-system abstraction.
package storage

import "time"

// FileInfo describes a workspace file.
type FileInfo struct {
	Path      string    `json:"path"` // relative to the workspace root
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// List returns every regular file under dir accepted by match. A nil
	// match accepts all files. Dot-files are skipped.
	List(dir string, match func(name string) bool) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Abs resolves path to an absolute path inside the workspace.
	Abs(path string) (string, error)
}
