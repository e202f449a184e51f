package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"strings"
	"text/template"

	"github.com/olimci/fiberforge/pkg/schema"
)

// ErrUnmapped matches every MappingError via errors.Is.
var ErrUnmapped = errors.New("codegen: unmapped combination")

// MappingError reports a database and field type or cardinality pair with no
// entry in the mapping tables, or an entry that does not render.
type MappingError struct {
	Database    schema.Database
	FieldType   schema.FieldType
	Cardinality schema.Cardinality
	Entity      string
	Err         error
}

func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("codegen: no ")
	switch {
	case e.FieldType != "":
		fmt.Fprintf(&b, "native type for field type %s", e.FieldType)
	case e.Cardinality != "":
		fmt.Fprintf(&b, "relationship syntax for %s", e.Cardinality)
	default:
		b.WriteString("primary key definition")
	}
	fmt.Fprintf(&b, " on %s", e.Database)
	if e.Entity != "" {
		fmt.Fprintf(&b, " (entity %s)", e.Entity)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

func (e *MappingError) Is(target error) bool {
	return target == ErrUnmapped
}

// Mappings are the lookup tables from the portable schema to database
// syntax. Relationship entries are text/template sources executed with a
// RelationshipData.
//
// For SQL databases a one-to-one entry is placed inside the owner's CREATE
// TABLE body and the other cardinalities are separate statements. For
// mongodb every entry is a $jsonSchema property of the owner.
type Mappings struct {
	Types         map[schema.Database]map[schema.FieldType]string
	Relationships map[schema.Database]map[schema.Cardinality]string
	PrimaryKeys   map[schema.Database]string
}

// RelationshipData is passed to relationship templates.
type RelationshipData struct {
	Owner        string
	OwnerTable   string
	Target       string
	TargetTable  string
	Column       string
	JoinTable    string
	OwnerColumn  string
	TargetColumn string
	// RefType is the native type of a reference on this database.
	RefType string
}

// DefaultMappings returns a fresh copy of the built-in tables.
func DefaultMappings() Mappings {
	return Mappings{
		Types: map[schema.Database]map[schema.FieldType]string{
			schema.Postgres: {
				schema.String:    "TEXT",
				schema.Int:       "BIGINT",
				schema.Float:     "DOUBLE PRECISION",
				schema.Bool:      "BOOLEAN",
				schema.Date:      "TIMESTAMPTZ",
				schema.Reference: "BIGINT",
			},
			schema.MySQL: {
				schema.String:    "VARCHAR(255)",
				schema.Int:       "BIGINT",
				schema.Float:     "DOUBLE",
				schema.Bool:      "BOOLEAN",
				schema.Date:      "DATETIME",
				schema.Reference: "BIGINT UNSIGNED",
			},
			schema.MongoDB: {
				schema.String:    "string",
				schema.Int:       "long",
				schema.Float:     "double",
				schema.Bool:      "bool",
				schema.Date:      "date",
				schema.Reference: "objectId",
			},
		},
		Relationships: map[schema.Database]map[schema.Cardinality]string{
			schema.Postgres: {
				schema.OneToOne:  `{{.Column}} {{.RefType}} UNIQUE REFERENCES {{.TargetTable}}(id)`,
				schema.OneToMany: `ALTER TABLE {{.TargetTable}} ADD COLUMN IF NOT EXISTS {{.Column}} {{.RefType}} REFERENCES {{.OwnerTable}}(id)`,
				schema.ManyToMany: `CREATE TABLE IF NOT EXISTS {{.JoinTable}} (
  {{.OwnerColumn}} {{.RefType}} NOT NULL REFERENCES {{.OwnerTable}}(id) ON DELETE CASCADE,
  {{.TargetColumn}} {{.RefType}} NOT NULL REFERENCES {{.TargetTable}}(id) ON DELETE CASCADE,
  PRIMARY KEY ({{.OwnerColumn}}, {{.TargetColumn}})
)`,
			},
			schema.MySQL: {
				schema.OneToOne: `{{.Column}} {{.RefType}} UNIQUE,
  FOREIGN KEY ({{.Column}}) REFERENCES {{.TargetTable}}(id)`,
				schema.OneToMany: `ALTER TABLE {{.TargetTable}} ADD COLUMN {{.Column}} {{.RefType}}, ADD FOREIGN KEY ({{.Column}}) REFERENCES {{.OwnerTable}}(id)`,
				schema.ManyToMany: `CREATE TABLE IF NOT EXISTS {{.JoinTable}} (
  {{.OwnerColumn}} {{.RefType}} NOT NULL,
  {{.TargetColumn}} {{.RefType}} NOT NULL,
  PRIMARY KEY ({{.OwnerColumn}}, {{.TargetColumn}}),
  FOREIGN KEY ({{.OwnerColumn}}) REFERENCES {{.OwnerTable}}(id) ON DELETE CASCADE,
  FOREIGN KEY ({{.TargetColumn}}) REFERENCES {{.TargetTable}}(id) ON DELETE CASCADE
)`,
			},
			schema.MongoDB: {
				schema.OneToOne:   `"{{.Column}}": {"bsonType": "{{.RefType}}"}`,
				schema.OneToMany:  `"{{.Column}}": {"bsonType": "array", "items": {"bsonType": "{{.RefType}}"}}`,
				schema.ManyToMany: `"{{.Column}}": {"bsonType": "array", "items": {"bsonType": "{{.RefType}}"}}`,
			},
		},
		PrimaryKeys: map[schema.Database]string{
			schema.Postgres: "id BIGSERIAL PRIMARY KEY",
			schema.MySQL:    "id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY",
		},
	}
}

// Merge returns m with the entries of other laid over it.
func (m Mappings) Merge(other Mappings) Mappings {
	out := Mappings{
		Types:         make(map[schema.Database]map[schema.FieldType]string),
		Relationships: make(map[schema.Database]map[schema.Cardinality]string),
		PrimaryKeys:   make(map[schema.Database]string),
	}
	for _, src := range []Mappings{m, other} {
		for db, types := range src.Types {
			if out.Types[db] == nil {
				out.Types[db] = make(map[schema.FieldType]string)
			}
			maps.Copy(out.Types[db], types)
		}
		for db, rels := range src.Relationships {
			if out.Relationships[db] == nil {
				out.Relationships[db] = make(map[schema.Cardinality]string)
			}
			maps.Copy(out.Relationships[db], rels)
		}
		maps.Copy(out.PrimaryKeys, src.PrimaryKeys)
	}
	return out
}

func (m Mappings) nativeType(db schema.Database, t schema.FieldType, entity string) (string, error) {
	if native, ok := m.Types[db][t]; ok && native != "" {
		return native, nil
	}
	return "", &MappingError{Database: db, FieldType: t, Entity: entity}
}

func (m Mappings) primaryKey(db schema.Database, entity string) (string, error) {
	if pk, ok := m.PrimaryKeys[db]; ok && pk != "" {
		return pk, nil
	}
	return "", &MappingError{Database: db, Entity: entity}
}

func (m Mappings) relationship(db schema.Database, c schema.Cardinality, entity string, data RelationshipData) (string, error) {
	src, ok := m.Relationships[db][c]
	if !ok || src == "" {
		return "", &MappingError{Database: db, Cardinality: c, Entity: entity}
	}

	tmpl, err := template.New(string(c)).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", &MappingError{Database: db, Cardinality: c, Entity: entity, Err: err}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &MappingError{Database: db, Cardinality: c, Entity: entity, Err: err}
	}
	return buf.String(), nil
}
