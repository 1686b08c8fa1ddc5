// Package testutil provides shared test helpers for setting up workspaces
// and sample data files.
package testutil

import (
	"strconv"
	"testing"

	"github.com/starford/dataforge/internal/storage"
)

// SalesCSV is a small monthly sales table used across package tests.
const SalesCSV = "month,sales,region\nJan,100,north\nFeb,150,south\nMar,120,north\n"

// TestWorkspace creates a temporary workspace directory with a storage.FS.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteFile writes content into the workspace, failing the test on error.
func WriteFile(t *testing.T, fs storage.Provider, path, content string) {
	t.Helper()
	if err := fs.Write(path, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

// Sequence returns an id generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
