package codegen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/olimci/fiberforge/pkg/ipm"
	"github.com/olimci/fiberforge/pkg/naming"
	"github.com/olimci/fiberforge/pkg/schema"
)

type model struct {
	entity  *ipm.Entity
	columns []*column
	// statements is the SQL schema, CREATE TABLE first.
	statements []string
	// jsonSchema is the mongodb collection validator.
	jsonSchema string
}

type column struct {
	name      string
	goName    string
	fieldType schema.FieldType
	native    string
	required  bool
	def       any
	ref       *ipm.Entity
	// relation columns come from relationships; their DDL is the mapping
	// template rather than a column definition.
	relation bool
	array    bool
}

func (c *column) pointer() bool {
	return !c.required && c.def == nil && !c.array
}

func (g *generation) buildModel(e *ipm.Entity) (*model, error) {
	db := g.project.Database
	m := &model{entity: e}

	for _, f := range e.Fields {
		native, err := g.opts.mappings.nativeType(db, f.Type, e.Name.Original)
		if err != nil {
			return nil, err
		}
		m.columns = append(m.columns, &column{
			name:      f.Name.Snake,
			goName:    f.Name.Pascal,
			fieldType: f.Type,
			native:    native,
			required:  f.Required,
			def:       f.Default,
			ref:       f.Ref,
		})
	}

	if g.sql() {
		return m, g.sqlSchema(m)
	}
	return m, g.mongoSchema(m)
}

func (g *generation) relationshipData(r *ipm.Relationship) (RelationshipData, error) {
	refType, err := g.opts.mappings.nativeType(g.project.Database, schema.Reference, r.Owner.Name.Original)
	if err != nil {
		return RelationshipData{}, err
	}

	d := RelationshipData{
		Owner:       r.Owner.Name.Snake,
		OwnerTable:  r.Owner.Table,
		Target:      r.Target.Name.Snake,
		TargetTable: r.Target.Table,
		Column:      r.Column,
		JoinTable:   r.JoinTable,
		RefType:     refType,
	}
	if r.Cardinality == schema.ManyToMany {
		d.OwnerColumn = r.Owner.Name.Snake + "_id"
		d.TargetColumn = r.Target.Name.Snake + "_id"
		if r.Owner == r.Target {
			d.TargetColumn = "related_" + d.TargetColumn
		}
	}
	if g.mongo() {
		d.Column = r.Target.Name.Snake + "_id"
		if r.Cardinality != schema.OneToOne {
			d.Column += "s"
		}
	}
	return d, nil
}

func (g *generation) sqlSchema(m *model) error {
	db := g.project.Database
	e := m.entity

	pk, err := g.opts.mappings.primaryKey(db, e.Name.Original)
	if err != nil {
		return err
	}

	body := []string{pk}
	for _, c := range m.columns {
		body = append(body, g.columnDDL(c))
	}

	var after []string
	for _, r := range e.Relationships {
		data, err := g.relationshipData(r)
		if err != nil {
			return err
		}
		stmt, err := g.opts.mappings.relationship(db, r.Cardinality, e.Name.Original, data)
		if err != nil {
			return err
		}
		if r.Cardinality != schema.OneToOne {
			after = append(after, stmt)
			continue
		}
		body = append(body, stmt)
		m.columns = append(m.columns, &column{
			name:      data.Column,
			goName:    naming.Pascal(data.Column),
			fieldType: schema.Reference,
			native:    data.RefType,
			relation:  true,
		})
	}

	// One-to-many columns are added to e by the owner's ALTER TABLE.
	for _, r := range e.Inbound {
		if r.Cardinality != schema.OneToMany {
			continue
		}
		refType, err := g.opts.mappings.nativeType(db, schema.Reference, r.Owner.Name.Original)
		if err != nil {
			return err
		}
		m.columns = append(m.columns, &column{
			name:      r.Column,
			goName:    naming.Pascal(r.Column),
			fieldType: schema.Reference,
			native:    refType,
			relation:  true,
		})
	}

	for _, c := range m.columns {
		if c.ref != nil && !c.relation {
			body = append(body, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(id)", c.name, c.ref.Table))
		}
	}

	create := "CREATE TABLE IF NOT EXISTS " + e.Table + " (\n  " + strings.Join(body, ",\n  ") + "\n)"
	m.statements = append([]string{create}, after...)
	return nil
}

func (g *generation) columnDDL(c *column) string {
	s := c.name + " " + c.native
	if c.required {
		s += " NOT NULL"
	}
	if c.def != nil {
		s += " DEFAULT " + sqlLiteral(g.project.Database, c.fieldType, c.def)
	}
	return s
}

func sqlLiteral(db schema.Database, ft schema.FieldType, v any) string {
	switch t := v.(type) {
	case string:
		if ts, ok := parseDate(t); ok && ft == schema.Date {
			if db == schema.MySQL {
				return "'" + ts.Format(time.DateTime) + "'"
			}
			return "'" + ts.Format(time.RFC3339) + "'"
		}
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("'%v'", t)
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range schema.DateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func (g *generation) mongoSchema(m *model) error {
	db := g.project.Database
	e := m.entity

	props := []string{`"_id": {"bsonType": "objectId"}`}
	var required []string
	for _, c := range m.columns {
		props = append(props, fmt.Sprintf(`%s: {"bsonType": %s}`, strconv.Quote(c.name), strconv.Quote(c.native)))
		if c.required {
			required = append(required, strconv.Quote(c.name))
		}
	}

	for _, r := range e.Relationships {
		data, err := g.relationshipData(r)
		if err != nil {
			return err
		}
		prop, err := g.opts.mappings.relationship(db, r.Cardinality, e.Name.Original, data)
		if err != nil {
			return err
		}
		if !json.Valid([]byte("{" + prop + "}")) {
			return &MappingError{
				Database:    db,
				Cardinality: r.Cardinality,
				Entity:      e.Name.Original,
				Err:         errors.New("rendered property is not a JSON object member"),
			}
		}
		props = append(props, prop)
		m.columns = append(m.columns, &column{
			name:      data.Column,
			goName:    naming.Pascal(data.Column),
			fieldType: schema.Reference,
			native:    data.RefType,
			relation:  true,
			array:     r.Cardinality != schema.OneToOne,
		})
	}

	var b strings.Builder
	b.WriteString("{\n  \"$jsonSchema\": {\n    \"bsonType\": \"object\",\n")
	if len(required) > 0 {
		b.WriteString("    \"required\": [" + strings.Join(required, ", ") + "],\n")
	}
	b.WriteString("    \"properties\": {\n      ")
	b.WriteString(strings.Join(props, ",\n      "))
	b.WriteString("\n    }\n  }\n}")

	m.jsonSchema = b.String()
	if !json.Valid([]byte(m.jsonSchema)) {
		return &MappingError{
			Database: db,
			Entity:   e.Name.Original,
			Err:      errors.New("generated $jsonSchema is not valid JSON"),
		}
	}
	return nil
}

func (g *generation) goType(c *column) *jen.Statement {
	var t *jen.Statement
	switch c.fieldType {
	case schema.String:
		t = jen.String()
	case schema.Int:
		t = jen.Int64()
	case schema.Float:
		t = jen.Float64()
	case schema.Bool:
		t = jen.Bool()
	case schema.Date:
		t = jen.Qual("time", "Time")
	default:
		t = g.idType()
	}

	switch {
	case c.array:
		return jen.Index().Add(t)
	case c.pointer():
		return jen.Op("*").Add(t)
	default:
		return t
	}
}

func (g *generation) idType() *jen.Statement {
	if g.mongo() {
		return jen.Qual(primitivePkg, "ObjectID")
	}
	return jen.Int64()
}

func (g *generation) tags(c *column) map[string]string {
	name := c.name
	if c.pointer() || c.array {
		name += ",omitempty"
	}
	if g.mongo() {
		return map[string]string{"json": name, "bson": name}
	}
	return map[string]string{"json": name, "db": c.name}
}

func goLiteral(c *column) jen.Code {
	switch v := c.def.(type) {
	case string:
		if c.fieldType == schema.Date {
			if ts, ok := parseDate(v); ok {
				return jen.Qual("time", "Date").Call(
					jen.Lit(ts.Year()),
					jen.Qual("time", ts.Month().String()),
					jen.Lit(ts.Day()),
					jen.Lit(ts.Hour()),
					jen.Lit(ts.Minute()),
					jen.Lit(ts.Second()),
					jen.Lit(ts.Nanosecond()),
					jen.Qual("time", "UTC"),
				)
			}
		}
		return jen.Lit(v)
	default:
		return jen.Lit(v)
	}
}

func (g *generation) modelFile(m *model) *jen.File {
	e := m.entity
	name := e.Name.Pascal
	f := g.newFile("models")

	if g.mongo() {
		f.Commentf("%sTable is the collection storing %s documents.", name, name)
	} else {
		f.Commentf("%sTable is the table storing %s rows.", name, name)
	}
	f.Const().Id(name + "Table").Op("=").Lit(e.Table)
	f.Line()

	if g.mongo() {
		f.Commentf("%sSchema is the $jsonSchema validator of the %s collection.", name, e.Table)
		f.Const().Id(name + "Schema").Op("=").Add(rawString(m.jsonSchema))
	} else {
		f.Commentf("%sSchema creates the %s table and its relationships, in order.", name, e.Table)
		f.Var().Id(name + "Schema").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
			for _, stmt := range m.statements {
				grp.Line().Add(rawString(stmt))
			}
			grp.Line()
		})
	}
	f.Line()

	idTags := map[string]string{"json": "id", "db": "id"}
	if g.mongo() {
		idTags = map[string]string{"json": "id", "bson": "_id"}
	}
	if g.mongo() {
		f.Commentf("%s is a document of the %s collection.", name, e.Table)
	} else {
		f.Commentf("%s is a row of the %s table.", name, e.Table)
	}
	f.Type().Id(name).StructFunc(func(grp *jen.Group) {
		grp.Id("ID").Add(g.idType()).Tag(idTags)
		for _, c := range m.columns {
			grp.Id(c.goName).Add(g.goType(c)).Tag(g.tags(c))
		}
	})
	f.Line()

	f.Commentf("New%s returns a %s with its declared defaults applied.", name, name)
	f.Func().Id("New"+name).Params().Op("*").Id(name).Block(
		jen.Return(jen.Op("&").Id(name).Values(jen.DictFunc(func(d jen.Dict) {
			for _, c := range m.columns {
				if c.def != nil {
					d[jen.Id(c.goName)] = goLiteral(c)
				}
			}
		}))),
	)

	if g.sql() {
		g.sqlAccessors(f, m)
	}
	return f
}

func (g *generation) sqlAccessors(f *jen.File, m *model) {
	name := m.entity.Name.Pascal

	f.Line()
	f.Commentf("%sColumns are written by inserts and updates, in Values order.", name)
	f.Var().Id(name + "Columns").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
		for _, c := range m.columns {
			grp.Lit(c.name)
		}
	})

	f.Line()
	f.Commentf("Values returns the values of %sColumns.", name)
	f.Func().Params(jen.Id("m").Op("*").Id(name)).Id("Values").Params().Index().Id("any").Block(
		jen.Return(jen.Index().Id("any").ValuesFunc(func(grp *jen.Group) {
			for _, c := range m.columns {
				grp.Id("m").Dot(c.goName)
			}
		})),
	)

	f.Line()
	f.Comment("Pointers returns scan destinations for the id followed by Values.")
	f.Func().Params(jen.Id("m").Op("*").Id(name)).Id("Pointers").Params().Index().Id("any").Block(
		jen.Return(jen.Index().Id("any").ValuesFunc(func(grp *jen.Group) {
			grp.Op("&").Id("m").Dot("ID")
			for _, c := range m.columns {
				grp.Op("&").Id("m").Dot(c.goName)
			}
		})),
	)
}
