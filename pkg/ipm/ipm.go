// Package ipm builds the intermediate project model the generators consume:
// identifier forms of every name, table names and a stable entity order.
package ipm

import (
	"strings"

	"github.com/olimci/fiberforge/pkg/naming"
	"github.com/olimci/fiberforge/pkg/schema"
)

// Names holds the identifier forms of one declared name.
type Names struct {
	Original string
	Pascal   string
	Camel    string
	Snake    string
	Kebab    string
}

func newNames(s string) Names {
	return Names{
		Original: s,
		Pascal:   naming.Pascal(s),
		Camel:    naming.Camel(s),
		Snake:    naming.Snake(s),
		Kebab:    naming.Kebab(s),
	}
}

type Project struct {
	Name       Names
	Module     string
	Database   schema.Database
	MinVersion string
	// Entities in generation order, see Build.
	Entities []*Entity
}

type Entity struct {
	Name Names
	// Table is the table or collection name, the plural of the snake form.
	Table string
	// Index is the declaration position in the config.
	Index         int
	Fields        []*Field
	Relationships []*Relationship
	// Inbound are the relationships of any entity that target e, in
	// declaration order of their owners.
	Inbound []*Relationship
}

// Dependencies returns the other entities e points at, in declaration
// order of e's fields and relationships, without duplicates.
func (e *Entity) Dependencies() []*Entity {
	var deps []*Entity
	seen := map[*Entity]bool{e: true}
	add := func(d *Entity) {
		if d != nil && !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	for _, f := range e.Fields {
		add(f.Ref)
	}
	for _, r := range e.Relationships {
		add(r.Target)
	}
	return deps
}

type Field struct {
	Name     Names
	Type     schema.FieldType
	Required bool
	Default  any
	// Ref is the entity a reference field points to, or nil.
	Ref *Entity
}

type Relationship struct {
	Owner       *Entity
	Target      *Entity
	Cardinality schema.Cardinality
	// Column is the foreign key column: on the owner for one-to-one, on the
	// target for one-to-many. Empty for many-to-many.
	Column string
	// JoinTable is set for many-to-many relationships.
	JoinTable string
}

// Build converts a validated project. It never fails: every reference in
// p has been resolved by schema.Validate.
func Build(p *schema.Project) *Project {
	out := &Project{
		Name:       newNames(p.Name),
		Module:     p.Module,
		Database:   p.Database,
		MinVersion: p.MinVersion,
	}

	declared := make([]*Entity, len(p.Entities))
	byName := make(map[string]*Entity, len(p.Entities))
	for i, se := range p.Entities {
		names := newNames(se.Name)
		e := &Entity{
			Name:  names,
			Table: naming.Plural(names.Snake),
			Index: i,
		}
		declared[i] = e
		byName[strings.ToLower(se.Name)] = e
	}

	for i, se := range p.Entities {
		e := declared[i]
		for _, sf := range se.Fields {
			f := &Field{
				Name:     newNames(sf.Name),
				Type:     sf.Type,
				Required: sf.Required,
				Default:  sf.Default,
			}
			if sf.Ref != "" {
				f.Ref = byName[strings.ToLower(sf.Ref)]
			}
			e.Fields = append(e.Fields, f)
		}
		for _, sr := range se.Relationships {
			target := byName[strings.ToLower(sr.Target)]
			if target == nil {
				continue
			}
			r := newRelationship(e, target, sr.Cardinality)
			e.Relationships = append(e.Relationships, r)
			target.Inbound = append(target.Inbound, r)
		}
	}

	out.Entities = order(declared)
	return out
}

func newRelationship(owner, target *Entity, c schema.Cardinality) *Relationship {
	r := &Relationship{Owner: owner, Target: target, Cardinality: c}
	switch c {
	case schema.OneToOne:
		r.Column = target.Name.Snake + "_id"
	case schema.OneToMany:
		r.Column = owner.Name.Snake + "_id"
	case schema.ManyToMany:
		r.JoinTable = owner.Name.Snake + "_" + target.Table
	}
	return r
}

// order places entities whose dependencies are all placed first, choosing
// the earliest declared among the ready ones. A cycle is broken by placing
// the earliest declared remaining entity.
func order(declared []*Entity) []*Entity {
	placed := make(map[*Entity]bool, len(declared))
	out := make([]*Entity, 0, len(declared))

	ready := func(e *Entity) bool {
		for _, d := range e.Dependencies() {
			if !placed[d] {
				return false
			}
		}
		return true
	}

	for len(out) < len(declared) {
		var next *Entity
		for _, e := range declared {
			if !placed[e] && ready(e) {
				next = e
				break
			}
		}
		if next == nil {
			for _, e := range declared {
				if !placed[e] {
					next = e
					break
				}
			}
		}
		placed[next] = true
		out = append(out, next)
	}
	return out
}
