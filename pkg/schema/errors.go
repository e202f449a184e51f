package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every ValidationError and ValidationErrors via errors.Is.
var ErrInvalid = errors.New("invalid project config")

// Kind classifies a validation failure.
type Kind int

const (
	MissingField Kind = iota
	MalformedValue
	InvalidName
	UnsupportedDatabase
	DuplicateEntity
	EmptyEntity
	DuplicateField
	ReservedField
	UnknownFieldType
	InvalidDefault
	UnknownCardinality
	DanglingReference
	ConflictingRelationship
	IncompatibleVersion
	UnknownKey
)

var kindNames = [...]string{
	MissingField:            "MissingField",
	MalformedValue:          "MalformedValue",
	InvalidName:             "InvalidName",
	UnsupportedDatabase:     "UnsupportedDatabase",
	DuplicateEntity:         "DuplicateEntity",
	EmptyEntity:             "EmptyEntity",
	DuplicateField:          "DuplicateField",
	ReservedField:           "ReservedField",
	UnknownFieldType:        "UnknownFieldType",
	InvalidDefault:          "InvalidDefault",
	UnknownCardinality:      "UnknownCardinality",
	DanglingReference:       "DanglingReference",
	ConflictingRelationship: "ConflictingRelationship",
	IncompatibleVersion:     "IncompatibleVersion",
	UnknownKey:              "UnknownKey",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ValidationError is a single problem found in a config document. Path
// locates the offending value, e.g. "entities[1].fields[0].type".
type ValidationError struct {
	Kind    Kind
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// ValidationErrors is every problem found in one document, in document
// order with reference resolution errors last.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(es))
	for _, e := range es {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (es ValidationErrors) Is(target error) bool {
	return target == ErrInvalid
}

// Unwrap exposes the individual errors to errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// ByKind returns the errors of kind k.
func (es ValidationErrors) ByKind(k Kind) ValidationErrors {
	var out ValidationErrors
	for _, e := range es {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
