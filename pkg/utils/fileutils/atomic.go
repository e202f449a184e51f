package fileutils

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileMode is the permission of files written by AtomicWrite.
const FileMode fs.FileMode = 0o644

// AtomicWrite writes a file atomically: readers see either the old content
// or the complete new content.
func AtomicWrite(path string, gen func(w io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	defer func(tmp *os.File) {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}(tmp)

	if err := gen(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(FileMode); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if df, err := os.Open(dir); err == nil {
		_ = df.Sync()
		_ = df.Close()
	}

	return nil
}
