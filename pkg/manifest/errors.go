package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrConflicts is matched by every staging failure.
var ErrConflicts = errors.New("conflicts")

// ConflictError reports every reason the file set could not be staged.
type ConflictError struct {
	// Duplicates maps a path to the owners of the files claiming it.
	Duplicates map[string][]string
	// Unsafe paths are absolute or escape the target directory.
	Unsafe []string
	// Collisions are create-only files whose target exists with other content.
	Collisions []string
}

func (e *ConflictError) empty() bool {
	return len(e.Duplicates) == 0 && len(e.Unsafe) == 0 && len(e.Collisions) == 0
}

func (e *ConflictError) Error() string {
	var parts []string
	for _, p := range slices.Sorted(maps.Keys(e.Duplicates)) {
		parts = append(parts, fmt.Sprintf("%s claimed by %s", p, strings.Join(e.Duplicates[p], ", ")))
	}
	for _, p := range e.Unsafe {
		parts = append(parts, fmt.Sprintf("unsafe path %q", p))
	}
	for _, p := range e.Collisions {
		parts = append(parts, fmt.Sprintf("%s already exists", p))
	}
	return fmt.Sprintf("%s: %s", ErrConflicts, strings.Join(parts, "; "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflicts
}

// Rollback describes the undo attempted after a failed write.
type Rollback struct {
	Complete bool
	// Remaining lists files of the failed commit still on disk.
	Remaining []string
	Errors    []error
}

// CommitError is an I/O failure while committing.
type CommitError struct {
	Path     string
	Err      error
	Rollback Rollback
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("commit %s: %v", e.Path, e.Err)
	if !e.Rollback.Complete {
		msg += fmt.Sprintf(" (rollback incomplete, remaining: %s)", strings.Join(e.Rollback.Remaining, ", "))
	}
	return msg
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
