package iofs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/olimci/fiberforge/pkg/utils/fileutils"
)

// FromOS writes under the directory at path.
func FromOS(path string) *OSFS {
	return &OSFS{path: path}
}

type OSFS struct {
	path string
}

func (o *OSFS) Root() string {
	return o.path
}

func (o *OSFS) EnsureRoot() error {
	info, err := os.Stat(o.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(o.path, 0o755); err != nil {
				return fmt.Errorf("failed to create target dir %q: %w", o.path, err)
			}
			return nil
		}
		return fmt.Errorf("failed to stat target dir %q: %w", o.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target dir %q is not a directory", o.path)
	}
	return nil
}

func (o *OSFS) full(rel string) string {
	return filepath.Join(o.path, filepath.FromSlash(rel))
}

func (o *OSFS) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(o.full(rel))
}

func (o *OSFS) Stat(rel string) (fs.FileInfo, error) {
	return os.Stat(o.full(rel))
}

func (o *OSFS) MkdirAll(rel string, perm fs.FileMode) error {
	return os.MkdirAll(o.full(rel), perm)
}

func (o *OSFS) Remove(rel string) error {
	return os.Remove(o.full(rel))
}

func (o *OSFS) Write(rel string, gen WriterFunc) error {
	return fileutils.AtomicWrite(o.full(rel), gen)
}
