package manifest

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olimci/fiberforge/pkg/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory Writable that can fail chosen operations.
type memFS struct {
	files map[string][]byte
	dirs  map[string]bool

	failWrite  map[string]int // path -> remaining successful writes before failing
	failRemove map[string]bool
	writes     []string
}

func newMemFS() *memFS {
	return &memFS{
		files:      make(map[string][]byte),
		dirs:       make(map[string]bool),
		failWrite:  make(map[string]int),
		failRemove: make(map[string]bool),
	}
}

var errInjected = errors.New("injected failure")

func (m *memFS) Root() string      { return "/mem" }
func (m *memFS) EnsureRoot() error { return nil }

func (m *memFS) ReadFile(rel string) ([]byte, error) {
	if m.dirs[rel] {
		return nil, errors.New("is a directory")
	}
	b, ok := m.files[rel]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return bytes.Clone(b), nil
}

func (m *memFS) Stat(rel string) (fs.FileInfo, error) {
	if m.dirs[rel] {
		return fakeInfo{name: rel, dir: true}, nil
	}
	if _, ok := m.files[rel]; ok {
		return fakeInfo{name: rel}, nil
	}
	return nil, fs.ErrNotExist
}

func (m *memFS) MkdirAll(rel string, _ fs.FileMode) error {
	for dir := rel; dir != "." && dir != ""; dir = filepath.ToSlash(filepath.Dir(dir)) {
		m.dirs[dir] = true
	}
	return nil
}

func (m *memFS) Remove(rel string) error {
	if m.failRemove[rel] {
		return errInjected
	}
	if m.dirs[rel] {
		for p := range m.files {
			if strings.HasPrefix(p, rel+"/") {
				return errors.New("directory not empty")
			}
		}
		delete(m.dirs, rel)
		return nil
	}
	if _, ok := m.files[rel]; !ok {
		return fs.ErrNotExist
	}
	delete(m.files, rel)
	return nil
}

func (m *memFS) Write(rel string, gen iofs.WriterFunc) error {
	if n, ok := m.failWrite[rel]; ok {
		if n == 0 {
			return errInjected
		}
		m.failWrite[rel] = n - 1
	}
	var buf bytes.Buffer
	if err := gen(&buf); err != nil {
		return err
	}
	m.files[rel] = buf.Bytes()
	m.writes = append(m.writes, rel)
	return nil
}

type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return 0 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

func file(path, content string, policy Policy) File {
	return File{Name: path, Owner: "test", Path: path, Content: []byte(content), Policy: policy}
}

func TestCommitWritesInOrder(t *testing.T) {
	out := newMemFS()
	files := []File{
		file("go.mod", "module x\n", CreateOnly),
		file("main.go", "package main\n", Overwrite),
		file("models/user.go", "package models\n", Overwrite),
	}

	res, err := Commit(context.Background(), out, files)
	require.NoError(t, err)

	assert.Equal(t, []string{"go.mod", "main.go", "models/user.go"}, out.writes)
	assert.True(t, out.dirs["models"])
	require.Len(t, res.Entries, 3)
	for _, e := range res.Entries {
		assert.Equal(t, Created, e.Status)
	}
	assert.Len(t, res.Written(), 3)
}

func TestCommitStatuses(t *testing.T) {
	out := newMemFS()
	out.files["go.mod"] = []byte("module x\n")
	out.files["main.go"] = []byte("old\n")

	res, err := Commit(context.Background(), out, []File{
		file("go.mod", "module x\n", CreateOnly),
		file("main.go", "new\n", Overwrite),
		file("README.md", "readme\n", Overwrite),
	})
	require.NoError(t, err)

	got := make([]Status, len(res.Entries))
	for i, e := range res.Entries {
		got[i] = e.Status
	}
	assert.Equal(t, []Status{Unchanged, Overwritten, Created}, got)
	assert.Equal(t, []string{"main.go", "README.md"}, out.writes)
	assert.Equal(t, "new\n", string(out.files["main.go"]))
}

func TestCommitConflicts(t *testing.T) {
	tests := []struct {
		name           string
		existing       map[string]string
		files          []File
		wantDuplicates []string
		wantUnsafe     []string
		wantCollisions []string
	}{
		{
			name: "duplicate target",
			files: []File{
				{Owner: "User", Path: "models/user.go"},
				{Owner: "user", Path: "models/user.go"},
			},
			wantDuplicates: []string{"models/user.go"},
		},
		{
			name: "unsafe paths",
			files: []File{
				file("../escape.go", "", Overwrite),
				file("/abs.go", "", Overwrite),
				file("a/../b.go", "", Overwrite),
				file("ok.go", "", Overwrite),
			},
			wantUnsafe: []string{"../escape.go", "/abs.go", "a/../b.go"},
		},
		{
			name:     "all collisions reported",
			existing: map[string]string{"go.mod": "module mine\n", "LICENSE": "mine"},
			files: []File{
				file("go.mod", "module x\n", CreateOnly),
				file("LICENSE", "theirs", CreateOnly),
				file("main.go", "package main\n", Overwrite),
			},
			wantCollisions: []string{"go.mod", "LICENSE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newMemFS()
			for p, c := range tt.existing {
				out.files[p] = []byte(c)
			}

			_, err := Commit(context.Background(), out, tt.files)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConflicts)

			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
			for _, p := range tt.wantDuplicates {
				assert.Contains(t, ce.Duplicates, p)
			}
			assert.Len(t, ce.Duplicates, len(tt.wantDuplicates))
			assert.Equal(t, tt.wantUnsafe, ce.Unsafe)
			assert.Equal(t, tt.wantCollisions, ce.Collisions)
			assert.Empty(t, out.writes, "nothing is written when staging fails")
		})
	}
}

func TestCommitForce(t *testing.T) {
	out := newMemFS()
	out.files["go.mod"] = []byte("module mine\n")

	res, err := Commit(context.Background(), out, []File{file("go.mod", "module x\n", CreateOnly)}, WithForce())
	require.NoError(t, err)
	assert.Equal(t, Overwritten, res.Entries[0].Status)
	assert.Equal(t, "module x\n", string(out.files["go.mod"]))
}

func TestCommitDryRun(t *testing.T) {
	out := newMemFS()
	out.files["main.go"] = []byte("old\n")

	res, err := Commit(context.Background(), out, []File{
		file("main.go", "new\n", Overwrite),
		file("router/router.go", "package router\n", Overwrite),
	}, WithDryRun())
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Len(t, res.Written(), 2)
	assert.Empty(t, out.writes)
	assert.Empty(t, out.dirs)
	assert.Equal(t, "old\n", string(out.files["main.go"]))
}

func TestCommitRollback(t *testing.T) {
	out := newMemFS()
	out.files["main.go"] = []byte("old main\n")
	out.failWrite["handlers/user.go"] = 0

	_, err := Commit(context.Background(), out, []File{
		file("go.mod", "module x\n", CreateOnly),
		file("main.go", "new main\n", Overwrite),
		file("models/user.go", "package models\n", Overwrite),
		file("handlers/user.go", "package handlers\n", Overwrite),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "handlers/user.go", ce.Path)
	assert.True(t, ce.Rollback.Complete)
	assert.Empty(t, ce.Rollback.Remaining)

	assert.Equal(t, map[string][]byte{"main.go": []byte("old main\n")}, out.files)
	assert.Empty(t, out.dirs, "created directories are removed")
}

func TestCommitRollbackIncomplete(t *testing.T) {
	out := newMemFS()
	out.failWrite["main.go"] = 0
	out.failRemove["go.mod"] = true

	_, err := Commit(context.Background(), out, []File{
		file("go.mod", "module x\n", CreateOnly),
		file("README.md", "readme\n", Overwrite),
		file("main.go", "package main\n", Overwrite),
	})

	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Rollback.Complete)
	assert.Equal(t, []string{"go.mod"}, ce.Rollback.Remaining)
	require.Len(t, ce.Rollback.Errors, 1)
	assert.ErrorIs(t, ce.Rollback.Errors[0], errInjected)
	assert.Contains(t, err.Error(), "rollback incomplete")

	assert.Contains(t, out.files, "go.mod")
	assert.NotContains(t, out.files, "README.md")
}

func TestCommitRollbackRestoresOverwritten(t *testing.T) {
	out := newMemFS()
	out.files["main.go"] = []byte("old\n")
	// the first write of main.go succeeds, restoring it is the second
	out.failWrite["main.go"] = 1
	out.failWrite["router/router.go"] = 0

	_, err := Commit(context.Background(), out, []File{
		file("main.go", "new\n", Overwrite),
		file("router/router.go", "package router\n", Overwrite),
	})

	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Rollback.Complete)
	assert.Equal(t, []string{"main.go"}, ce.Rollback.Remaining)
}

func TestCommitCanceled(t *testing.T) {
	out := newMemFS()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Commit(ctx, out, []File{file("main.go", "package main\n", Overwrite)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.files)
}

func TestCommitOS(t *testing.T) {
	dir := t.TempDir()
	out := iofs.FromOS(filepath.Join(dir, "app"))

	files := []File{
		file("go.mod", "module app\n", CreateOnly),
		file("database/connection.go", "package database\n", Overwrite),
	}
	_, err := Commit(context.Background(), out, files)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "app", "database", "connection.go"))
	require.NoError(t, err)
	assert.Equal(t, "package database\n", string(got))

	info, err := os.Stat(filepath.Join(dir, "app", "go.mod"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(dir, "app", "database"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")

	res, err := Commit(context.Background(), out, files)
	require.NoError(t, err)
	assert.Empty(t, res.Written())
}

func TestCommitOSRollbackRemovesCreatedRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "app")
	out := iofs.FromOS(root)

	// the second write needs a.txt to be a directory
	_, err := Commit(context.Background(), out, []File{
		file("a.txt", "a\n", Overwrite),
		file("a.txt/b.go", "package b\n", Overwrite),
	})

	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "a.txt/b.go", ce.Path)
	assert.True(t, ce.Rollback.Complete, err.Error())
	assert.NoDirExists(t, root)
	assert.DirExists(t, dir)
}

func TestCommitOSRollbackKeepsExistingRoot(t *testing.T) {
	root := t.TempDir()
	out := iofs.FromOS(root)

	_, err := Commit(context.Background(), out, []File{
		file("a.txt", "a\n", Overwrite),
		file("a.txt/b.go", "package b\n", Overwrite),
	})
	require.Error(t, err)

	assert.DirExists(t, root)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"models/user.go", true},
		{"..", false},
		{"../x", false},
		{"a/../../x", false},
		{"/etc/passwd", false},
		{"./main.go", false},
		{"", false},
		{`a\b.go`, false},
		{"..data/x.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, safePath(tt.path))
		})
	}
}
