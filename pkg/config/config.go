package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Raw is the untyped document decoded from a config file. It only lives
// until validation; schema.Validate is the sole consumer.
type Raw map[string]any

// Keys of the raw document understood by the validator.
const (
	KeyName          = "name"
	KeyDatabase      = "database"
	KeyModule        = "module"
	KeyMinVersion    = "fiberforge"
	KeyEntities      = "entities"
	KeyFields        = "fields"
	KeyRelationships = "relationships"
	KeyType          = "type"
	KeyRequired      = "required"
	KeyDefault       = "default"
	KeyRef           = "ref"
	KeyTarget        = "target"
	KeyTargetEntity  = "targetEntity"
	KeyCardinality   = "cardinality"
)

// ErrorKind classifies load failures.
type ErrorKind int

const (
	NotFound ErrorKind = iota
	Unreadable
	SyntaxError
	UnsupportedFormat
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Unreadable:
		return "unreadable"
	case SyntaxError:
		return "syntax error"
	case UnsupportedFormat:
		return "unsupported format"
	default:
		return "unknown"
	}
}

// Error is returned by Load. Line and Column are 1-based and zero when the
// decoder could not tell where the problem is.
type Error struct {
	Kind   ErrorKind
	Path   string
	Line   int
	Column int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("config: ")
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
			if e.Column > 0 {
				fmt.Fprintf(&b, ":%d", e.Column)
			}
		}
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func syntaxErrorAt(line, col int, detail string, err error) *Error {
	return &Error{Kind: SyntaxError, Line: line, Column: col, Detail: detail, Err: err}
}

// Formats returns the supported config file extensions.
func Formats() []string {
	return []string{".json", ".txt", ".yaml", ".yml", ".toml", ".hcl"}
}

// Load reads and decodes the config file at path, choosing the decoder by
// file extension.
func Load(path string) (Raw, error) {
	if _, ok := decoders[strings.ToLower(filepath.Ext(path))]; !ok {
		return nil, &Error{
			Kind:   UnsupportedFormat,
			Path:   path,
			Detail: fmt.Sprintf("unsupported config file type %q (supported: %s)", filepath.Ext(path), strings.Join(Formats(), ", ")),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: NotFound, Path: path, Detail: "no such file", Err: err}
		}
		return nil, &Error{Kind: Unreadable, Path: path, Detail: err.Error(), Err: err}
	}

	return Decode(path, data)
}

// Decode decodes an in-memory document; filename only selects the format
// and labels errors.
func Decode(filename string, data []byte) (Raw, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	decode, ok := decoders[ext]
	if !ok {
		return nil, &Error{
			Kind:   UnsupportedFormat,
			Path:   filename,
			Detail: fmt.Sprintf("unsupported config file type %q", ext),
		}
	}

	raw, err := decode(filename, data)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			if cerr.Path == "" {
				cerr.Path = filename
			}
			return nil, cerr
		}
		return nil, &Error{Kind: SyntaxError, Path: filename, Detail: err.Error(), Err: err}
	}
	if raw == nil {
		raw = Raw{}
	}
	return raw, nil
}
