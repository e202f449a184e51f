package iofs

import (
	"io"
	"io/fs"
)

// WriterFunc writes a destination file to the provided writer.
type WriterFunc func(w io.Writer) error

// Writable abstracts the directory a project is generated into. Paths are
// slash separated and relative to the root.
type Writable interface {
	Root() string
	EnsureRoot() error
	// ReadFile and Stat report fs.ErrNotExist for missing paths.
	ReadFile(rel string) ([]byte, error)
	Stat(rel string) (fs.FileInfo, error)
	MkdirAll(rel string, perm fs.FileMode) error
	Remove(rel string) error
	// Write replaces rel atomically with the output of gen.
	Write(rel string, gen WriterFunc) error
}
