// Package internal holds helpers shared by the fiberforge commands.
package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// LockName is the lock file taken in a target directory while a command
// writes to it.
const LockName = ".fiberforge.lock"

var ErrLocked = errors.New("target directory is locked by another fiberforge process")

type Lock struct {
	path       string
	dir        string
	createdDir bool
}

// Acquire takes the lock of dir, creating dir if needed.
func Acquire(dir string) (*Lock, error) {
	l := &Lock{dir: dir, path: filepath.Join(dir, LockName)}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create target dir %q: %w", dir, err)
		}
		l.createdDir = true
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w (remove %s if no other process is running)", ErrLocked, l.path)
		}
		l.cleanupDir()
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		l.cleanupDir()
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	return l, nil
}

// Release removes the lock file, and the target directory when Acquire made
// it and nothing was written there.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	l.cleanupDir()
	return nil
}

func (l *Lock) cleanupDir() {
	if l.createdDir {
		_ = os.Remove(l.dir)
	}
}
