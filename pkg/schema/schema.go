// Package schema validates a raw config document into a typed Project.
package schema

import "strings"

// Database is the database a generated project targets.
type Database string

const (
	MongoDB  Database = "mongodb"
	MySQL    Database = "mysql"
	Postgres Database = "postgres"
)

// Databases lists the supported databases.
func Databases() []Database {
	return []Database{MongoDB, MySQL, Postgres}
}

// ParseDatabase matches s case-insensitively.
func ParseDatabase(s string) (Database, bool) {
	switch d := Database(strings.ToLower(strings.TrimSpace(s))); d {
	case MongoDB, MySQL, Postgres:
		return d, true
	default:
		return "", false
	}
}

func (d Database) String() string { return string(d) }

// SQL reports whether d is a relational database.
func (d Database) SQL() bool {
	return d == MySQL || d == Postgres
}

// FieldType is the declared type of an entity field.
type FieldType string

const (
	String    FieldType = "string"
	Int       FieldType = "int"
	Float     FieldType = "float"
	Bool      FieldType = "bool"
	Date      FieldType = "date"
	Reference FieldType = "reference"
)

// FieldTypes lists the supported field types.
func FieldTypes() []FieldType {
	return []FieldType{String, Int, Float, Bool, Date, Reference}
}

func ParseFieldType(s string) (FieldType, bool) {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(s))); t {
	case String, Int, Float, Bool, Date, Reference:
		return t, true
	default:
		return "", false
	}
}

func (t FieldType) String() string { return string(t) }

// Cardinality of a relationship from its owning entity to the target.
type Cardinality string

const (
	OneToOne   Cardinality = "one-to-one"
	OneToMany  Cardinality = "one-to-many"
	ManyToMany Cardinality = "many-to-many"
)

func Cardinalities() []Cardinality {
	return []Cardinality{OneToOne, OneToMany, ManyToMany}
}

// ParseCardinality accepts the canonical spelling and the underscore and
// compact variants ("one_to_many", "onetomany").
func ParseCardinality(s string) (Cardinality, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch norm {
	case "onetoone":
		return OneToOne, true
	case "onetomany":
		return OneToMany, true
	case "manytomany":
		return ManyToMany, true
	default:
		return "", false
	}
}

func (c Cardinality) String() string { return string(c) }

// Project is a validated project description. Values returned by Validate
// are shared with later pipeline stages and must not be modified.
type Project struct {
	Name     string
	Database Database
	// Module is the Go module path of the generated project.
	Module string
	// MinVersion is the minimum engine version the config asked for, or "".
	MinVersion string
	Entities   []*Entity
}

// Entity returns the entity with the given name, matched case-insensitively.
func (p *Project) Entity(name string) *Entity {
	for _, e := range p.Entities {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

type Entity struct {
	Name          string
	Fields        []*Field
	Relationships []Relationship
}

// Field is an entity attribute. Default is nil or one of string, int64,
// float64 or bool; date defaults are kept as their string literal.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Default  any
	// Ref names the entity a reference field points to, if declared.
	Ref string
}

// Relationship targets are resolved to the declared entity name.
type Relationship struct {
	Target      string
	Cardinality Cardinality
}
