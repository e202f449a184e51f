// Package manifest commits a set of generated files to a target directory as
// one unit: everything is staged and checked before the first write, and a
// failed write rolls back what was already written.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/olimci/fiberforge/pkg/iofs"
	"github.com/olimci/fiberforge/pkg/utils/set"
)

// Policy decides what happens when a file's target already exists.
type Policy int

const (
	// Overwrite replaces an existing target.
	Overwrite Policy = iota
	// CreateOnly never replaces an existing target with different content.
	CreateOnly
)

func (p Policy) String() string {
	switch p {
	case CreateOnly:
		return "create-only"
	default:
		return "overwrite"
	}
}

// File is one generated file. Path is slash separated and relative to the
// target directory.
type File struct {
	Name    string
	Owner   string
	Path    string
	Content []byte
	Policy  Policy
}

// Status is what a commit did, or would do, with a file.
type Status int

const (
	Created Status = iota
	Overwritten
	Unchanged
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Overwritten:
		return "overwritten"
	default:
		return "unchanged"
	}
}

type Entry struct {
	File   File
	Status Status
}

// Result lists every file of the commit in emission order.
type Result struct {
	Entries []Entry
	DryRun  bool
}

// Written returns the files whose content was written, in order.
func (r *Result) Written() []File {
	var out []File
	for _, e := range r.Entries {
		if e.Status != Unchanged {
			out = append(out, e.File)
		}
	}
	return out
}

type staged struct {
	entry  Entry
	backup []byte
}

// Commit writes files under out. Staging failures return a *ConflictError
// and leave out untouched. Write failures return a *CommitError after a
// rollback attempt whose outcome it reports.
func Commit(ctx context.Context, out iofs.Writable, files []File, opts ...Option) (*Result, error) {
	o := defaultOptions().apply(opts...)

	plan, err := stage(out, files, o)
	if err != nil {
		return nil, err
	}

	res := &Result{DryRun: o.dryRun}
	for _, s := range plan {
		res.Entries = append(res.Entries, s.entry)
	}
	if o.dryRun {
		return res, nil
	}

	_, err = out.Stat(".")
	rootMissing := errors.Is(err, fs.ErrNotExist)
	if err := out.EnsureRoot(); err != nil {
		return nil, &CommitError{Path: out.Root(), Err: err, Rollback: Rollback{Complete: true}}
	}

	c := &committer{out: out, dirs: set.New[string]()}
	if rootMissing {
		// removed last on rollback
		c.created = append(c.created, ".")
	}
	for _, s := range plan {
		if s.entry.Status == Unchanged {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, c.fail(s.entry.File.Path, err)
		}
		if err := c.write(s); err != nil {
			return nil, c.fail(s.entry.File.Path, err)
		}
	}

	return res, nil
}

func stage(out iofs.Writable, files []File, o *options) ([]staged, error) {
	conflicts := &ConflictError{}

	owners := make(map[string][]string)
	for _, f := range files {
		if !safePath(f.Path) {
			conflicts.Unsafe = append(conflicts.Unsafe, f.Path)
			continue
		}
		owners[f.Path] = append(owners[f.Path], f.Owner)
	}
	for p, own := range owners {
		if len(own) > 1 {
			if conflicts.Duplicates == nil {
				conflicts.Duplicates = make(map[string][]string)
			}
			conflicts.Duplicates[p] = own
		}
	}
	if !conflicts.empty() {
		return nil, conflicts
	}

	plan := make([]staged, 0, len(files))
	for _, f := range files {
		current, err := out.ReadFile(f.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			plan = append(plan, staged{entry: Entry{File: f, Status: Created}})
			continue
		case err != nil:
			return nil, &CommitError{
				Path:     f.Path,
				Err:      fmt.Errorf("read existing file: %w", err),
				Rollback: Rollback{Complete: true},
			}
		}

		switch {
		case bytes.Equal(current, f.Content):
			plan = append(plan, staged{entry: Entry{File: f, Status: Unchanged}})
		case f.Policy == CreateOnly && !o.force:
			conflicts.Collisions = append(conflicts.Collisions, f.Path)
		default:
			plan = append(plan, staged{entry: Entry{File: f, Status: Overwritten}, backup: current})
		}
	}
	if !conflicts.empty() {
		return nil, conflicts
	}

	return plan, nil
}

type committer struct {
	out iofs.Writable
	// dirs holds directories known to exist before or after this commit.
	dirs    *set.Set[string]
	created []string
	done    []staged
}

func (c *committer) write(s staged) error {
	if err := c.mkdirs(s.entry.File.Path); err != nil {
		return err
	}
	content := s.entry.File.Content
	if err := c.out.Write(s.entry.File.Path, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}); err != nil {
		return err
	}
	c.done = append(c.done, s)
	return nil
}

// mkdirs creates the missing parents of p, remembering each one it made.
func (c *committer) mkdirs(p string) error {
	for _, dir := range parents(p) {
		if c.dirs.Has(dir) {
			continue
		}
		_, err := c.out.Stat(dir)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			if err := c.out.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			c.created = append(c.created, dir)
		default:
			return err
		}
		c.dirs.Add(dir)
	}
	return nil
}

func (c *committer) fail(path string, err error) *CommitError {
	return &CommitError{Path: path, Err: err, Rollback: c.rollback()}
}

func (c *committer) rollback() Rollback {
	rb := Rollback{Complete: true}

	for _, s := range slices.Backward(c.done) {
		p := s.entry.File.Path
		var err error
		if s.entry.Status == Overwritten {
			backup := s.backup
			err = c.out.Write(p, func(w io.Writer) error {
				_, err := w.Write(backup)
				return err
			})
		} else {
			err = c.out.Remove(p)
			if errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
		}
		if err != nil {
			rb.Complete = false
			rb.Remaining = append(rb.Remaining, p)
			rb.Errors = append(rb.Errors, fmt.Errorf("%s: %w", p, err))
		}
	}

	// Directories are removed deepest first. A directory still holding a
	// remaining file is expected to fail and is not reported twice.
	for _, dir := range slices.Backward(c.created) {
		err := c.out.Remove(dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) && rb.Complete {
			rb.Errors = append(rb.Errors, fmt.Errorf("%s: %w", dir, err))
		}
	}

	return rb
}
