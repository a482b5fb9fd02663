// Package testutil provides helpers for building CheckMK plugin project
// fixtures and for inspecting the archives the builder produces.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Project is a throwaway plugin project tree rooted in a temp directory.
type Project struct {
	Root string
	t    *testing.T
}

// NewProject creates an empty project tree that is removed with the test.
func NewProject(t *testing.T) *Project {
	t.Helper()
	return &Project{Root: t.TempDir(), t: t}
}

// WriteFile creates a regular file (mode 0644) at the slash-separated
// relative path, creating parent directories as needed.
func (p *Project) WriteFile(rel, content string) string {
	p.t.Helper()
	return p.writeFile(rel, content, 0o644)
}

// WriteExecutable creates an executable file (mode 0755) at rel.
func (p *Project) WriteExecutable(rel, content string) string {
	p.t.Helper()
	return p.writeFile(rel, content, 0o755)
}

func (p *Project) writeFile(rel, content string, mode os.FileMode) string {
	p.t.Helper()
	path := filepath.Join(p.Root, filepath.FromSlash(rel))
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), mode))
	return path
}

// Mkdir creates a directory at the slash-separated relative path.
func (p *Project) Mkdir(rel string) string {
	p.t.Helper()
	path := filepath.Join(p.Root, filepath.FromSlash(rel))
	require.NoError(p.t, os.MkdirAll(path, 0o755))
	return path
}

// Symlink creates a symlink at linkRel pointing to targetRel (both
// relative to the project root).
func (p *Project) Symlink(targetRel, linkRel string) {
	p.t.Helper()
	target := filepath.Join(p.Root, filepath.FromSlash(targetRel))
	link := filepath.Join(p.Root, filepath.FromSlash(linkRel))
	require.NoError(p.t, os.MkdirAll(filepath.Dir(link), 0o755))
	require.NoError(p.t, os.Symlink(target, link))
}

// WriteConfig writes a .mkp-builder.ini at the project root.
func (p *Project) WriteConfig(content string) string {
	p.t.Helper()
	return p.WriteFile(".mkp-builder.ini", content)
}
